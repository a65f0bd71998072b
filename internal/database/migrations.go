package database

import (
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.ClubSetting{},
		&models.SingleUseInvitationCode{},
		&models.ReferralLink{},
		&models.ReferralLinkClick{},
		&models.Referral{},
	)
}

// SeedData inserts the default referral limits unless an administrator has
// already configured them.
func SeedData(db *gorm.DB) error {
	defaults := []models.ClubSetting{
		{Key: MaxReferralsSetting, Value: "10"},
		{Key: MaxReferralLinksSetting, Value: "5"},
		{Key: MaxInvitationCodesSetting, Value: "2"},
	}

	for _, setting := range defaults {
		if err := db.Where(models.ClubSetting{Key: setting.Key}).
			Attrs(setting).
			FirstOrCreate(&models.ClubSetting{}).Error; err != nil {
			return err
		}
	}

	return nil
}
