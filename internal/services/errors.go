package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrStorageFailure marks errors returned by the database itself rather than by
// a domain rule. Handlers surface it as a storage outage instead of a generic
// internal error.
var ErrStorageFailure = errors.New("storage failure")

// storageError tags a database error with ErrStorageFailure while keeping the
// original error chain intact.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
// The unique indexes on codes and on referrals.referred_id are the correctness guard for
// concurrent inserts; callers translate this into a retry or a domain error.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}
