package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/models"
	"github.com/aurorasociety/clubhouse/pkg/logger"
	"github.com/aurorasociety/clubhouse/pkg/metrics"
)

var (
	// ErrInvitationCodeNotFound indicates no active code matches the input.
	ErrInvitationCodeNotFound = errors.New("invitation code: not found")
	// ErrInvitationCodeUsed indicates the code was already redeemed.
	ErrInvitationCodeUsed = errors.New("invitation code: already used")
	// ErrInvitationCodeLimitReached indicates the member is at their active-code cap.
	ErrInvitationCodeLimitReached = errors.New("invitation code: limit reached")
	// ErrInvitationCodeImmutable indicates a rename attempt on a redeemed code.
	ErrInvitationCodeImmutable = errors.New("invitation code: redeemed codes cannot be renamed")
	// ErrCannotRevokeCode indicates the code cannot be revoked: it is already
	// used, or it is the member's last usable code and they hold no primary code.
	ErrCannotRevokeCode = errors.New("invitation code: cannot revoke")
)

// InvitationCodeOption customises InvitationCodeService behaviour.
type InvitationCodeOption func(*InvitationCodeService)

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationCodeOption {
	return func(s *InvitationCodeService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InvitationCodeService manages single-use invitation codes: explicit codes a
// sponsor mints, hands out, and may revoke before redemption.
type InvitationCodeService struct {
	db           *gorm.DB
	limits       *LimitService
	sponsorships *SponsorshipService
	generator    *CodeGenerator
	now          func() time.Time
	log          *zap.Logger
}

// NewInvitationCodeService constructs an InvitationCodeService.
func NewInvitationCodeService(db *gorm.DB, limits *LimitService, sponsorships *SponsorshipService, generator *CodeGenerator, opts ...InvitationCodeOption) (*InvitationCodeService, error) {
	if db == nil {
		return nil, errors.New("invitation code service: db is required")
	}
	if limits == nil {
		return nil, errors.New("invitation code service: limit service is required")
	}
	if sponsorships == nil {
		return nil, errors.New("invitation code service: sponsorship service is required")
	}
	if generator == nil {
		generator = NewCodeGenerator()
	}

	service := &InvitationCodeService{
		db:           db,
		limits:       limits,
		sponsorships: sponsorships,
		generator:    generator,
		now:          time.Now,
		log:          logger.WithModule("invitation_codes"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Create mints a new invitation code for the member. Only active codes count
// against the cap: revoking frees a slot, redeemed codes keep theirs.
func (s *InvitationCodeService) Create(ctx context.Context, userID, label string) (*models.SingleUseInvitationCode, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("invitation code service: user id is required")
	}

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.SingleUseInvitationCode{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&active).Error; err != nil {
		return nil, storageError("invitation code service: count active", err)
	}
	if active >= int64(s.limits.MaxInvitationCodes(ctx)) {
		return nil, ErrInvitationCodeLimitReached
	}

	// The probe keeps the common path collision-free; the unique index is the
	// actual guard, so an insert race falls through to a retry.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generator.Generate(ctx, PrimaryCodePrefix, s.codeExists)
		if err != nil {
			return nil, err
		}

		record := models.SingleUseInvitationCode{
			UserID:         userID,
			InvitationCode: code,
			CodeName:       optionalLabel(label),
			IsActive:       true,
		}

		err = s.db.WithContext(ctx).Create(&record).Error
		if err == nil {
			metrics.CodesGenerated.WithLabelValues("invitation").Inc()
			return &record, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, storageError("invitation code service: create", err)
		}
		s.log.Warn("invitation code collision, retrying", zap.Int("attempt", attempt+1))
	}

	return nil, ErrCodeGenerationExhausted
}

// List returns the member's invitation codes, newest first, including used and
// revoked ones so the history stays visible.
func (s *InvitationCodeService) List(ctx context.Context, userID string) ([]models.SingleUseInvitationCode, error) {
	ctx = ensureContext(ctx)

	var codes []models.SingleUseInvitationCode
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&codes).Error; err != nil {
		return nil, storageError("invitation code service: list", err)
	}
	return codes, nil
}

// Rename changes the label of an unredeemed code.
func (s *InvitationCodeService) Rename(ctx context.Context, userID, codeID, label string) (*models.SingleUseInvitationCode, error) {
	ctx = ensureContext(ctx)

	record, err := s.loadOwned(ctx, userID, codeID)
	if err != nil {
		return nil, err
	}
	if record.IsUsed {
		return nil, ErrInvitationCodeImmutable
	}

	name := optionalLabel(label)
	if err := s.db.WithContext(ctx).Model(record).Update("code_name", name).Error; err != nil {
		return nil, storageError("invitation code service: rename", err)
	}
	record.CodeName = name
	return record, nil
}

// Redeem consumes an invitation code on behalf of a newly registered member
// and opens the pending ledger entry toward the issuing sponsor. The consume
// step is a single guarded UPDATE so exactly one concurrent redeemer wins,
// and the ledger insert shares its transaction so a failed insert releases
// the code again.
func (s *InvitationCodeService) Redeem(ctx context.Context, code, newMemberID string) (*models.Referral, error) {
	ctx = ensureContext(ctx)

	code = strings.ToUpper(strings.TrimSpace(code))
	newMemberID = strings.TrimSpace(newMemberID)
	if code == "" || newMemberID == "" {
		return nil, errors.New("invitation code service: code and member id are required")
	}

	var referral *models.Referral
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()
		result := tx.Model(&models.SingleUseInvitationCode{}).
			Where("invitation_code = ? AND is_active = ? AND is_used = ?", code, true, false).
			Updates(map[string]any{
				"is_used": true,
				"used_by": newMemberID,
				"used_at": now,
			})
		if result.Error != nil {
			return storageError("invitation code service: consume", result.Error)
		}
		if result.RowsAffected == 0 {
			// Distinguish unknown/revoked from already-used for the caller.
			var existing models.SingleUseInvitationCode
			err := tx.Take(&existing, "invitation_code = ?", code).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationCodeNotFound
			}
			if err != nil {
				return storageError("invitation code service: inspect code", err)
			}
			if existing.IsUsed {
				return ErrInvitationCodeUsed
			}
			return ErrInvitationCodeNotFound
		}

		var consumed models.SingleUseInvitationCode
		if err := tx.Take(&consumed, "invitation_code = ?", code).Error; err != nil {
			return storageError("invitation code service: reload code", err)
		}

		created, err := s.sponsorships.createInTx(tx, CreateReferralInput{
			SponsorID:  consumed.UserID,
			ReferredID: newMemberID,
			Code:       code,
		})
		if err != nil {
			return err
		}
		referral = created
		return nil
	})
	if err != nil {
		metrics.Redemptions.WithLabelValues("invitation_code", "failure").Inc()
		return nil, err
	}

	metrics.Redemptions.WithLabelValues("invitation_code", "success").Inc()
	return referral, nil
}

// Revoke deactivates an unredeemed code. Redeemed codes are immutable, and the
// member's last usable code can only go if they already hold a primary code.
func (s *InvitationCodeService) Revoke(ctx context.Context, userID, codeID string) (*models.SingleUseInvitationCode, error) {
	ctx = ensureContext(ctx)

	record, err := s.loadOwned(ctx, userID, codeID)
	if err != nil {
		return nil, err
	}
	if record.IsUsed {
		return nil, ErrCannotRevokeCode
	}
	if !record.IsActive {
		return record, nil
	}

	var usable int64
	if err := s.db.WithContext(ctx).Model(&models.SingleUseInvitationCode{}).
		Where("user_id = ? AND is_active = ? AND is_used = ?", userID, true, false).
		Count(&usable).Error; err != nil {
		return nil, storageError("invitation code service: count usable", err)
	}
	if usable <= 1 {
		var profile models.Profile
		err := s.db.WithContext(ctx).Take(&profile, "id = ?", userID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storageError("invitation code service: load profile", err)
		}
		if err != nil || profile.ReferralCode == nil || *profile.ReferralCode == "" {
			return nil, ErrCannotRevokeCode
		}
	}

	if err := s.db.WithContext(ctx).Model(record).Update("is_active", false).Error; err != nil {
		return nil, storageError("invitation code service: revoke", err)
	}
	record.IsActive = false
	return record, nil
}

func (s *InvitationCodeService) loadOwned(ctx context.Context, userID, codeID string) (*models.SingleUseInvitationCode, error) {
	userID = strings.TrimSpace(userID)
	codeID = strings.TrimSpace(codeID)
	if userID == "" || codeID == "" {
		return nil, errors.New("invitation code service: user and code ids are required")
	}

	var record models.SingleUseInvitationCode
	err := s.db.WithContext(ctx).Take(&record, "id = ? AND user_id = ?", codeID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationCodeNotFound
	}
	if err != nil {
		return nil, storageError("invitation code service: load", err)
	}
	return &record, nil
}

func (s *InvitationCodeService) codeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.SingleUseInvitationCode{}).
		Where("invitation_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
