package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/models"
)

// Keys for the administrator-configured referral limits.
const (
	MaxReferralsSetting       = "max_referrals_per_user"
	MaxReferralLinksSetting   = "max_referral_links_per_user"
	MaxInvitationCodesSetting = "max_invitation_codes_per_user"
)

// GetClubSetting retrieves a club setting by key. Returns an empty string when not found.
func GetClubSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("club settings: db is nil")
	}

	var setting models.ClubSetting
	err := db.WithContext(ctx).Take(&setting, "setting_key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("club settings: get %q: %w", key, err)
}

// UpsertClubSetting stores or updates a club setting value.
func UpsertClubSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("club settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("club settings: key is required")
	}

	record := models.ClubSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("setting_key = ?", key).
		Assign(map[string]any{"setting_value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("club settings: upsert %q: %w", key, err)
	}

	return nil
}
