package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReferralLink is a shareable, trackable URL variant of a sponsor's referral
// code. Unlike invitation codes it has no terminal used state: it can be
// toggled active/inactive and is hard-deleted when no longer wanted.
type ReferralLink struct {
	BaseModel

	SponsorID    string  `gorm:"type:uuid;index;not null" json:"sponsor_id"`
	LinkCode     string  `gorm:"uniqueIndex;not null" json:"link_code"`
	LinkName     *string `gorm:"size:128" json:"link_name,omitempty"`
	ReferralCode string  `gorm:"not null" json:"referral_code"`

	ClickCount        int64 `gorm:"not null;default:0" json:"click_count"`
	RegistrationCount int64 `gorm:"not null;default:0" json:"registration_count"`

	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	IsFamilyLink bool           `gorm:"not null;default:false" json:"is_family_link"`
	AllowedPages datatypes.JSON `json:"allowed_pages,omitempty"`
	ExpiresAt    *time.Time     `gorm:"index" json:"expires_at,omitempty"`
}

// ReferralLinkClick records one tracked visit to a referral link.
type ReferralLinkClick struct {
	BaseModel

	LinkID    string  `gorm:"type:uuid;index;not null" json:"link_id"`
	IPAddress string  `gorm:"size:64" json:"ip_address"`
	UserAgent string  `json:"user_agent"`
	Referer   *string `json:"referer,omitempty"`

	Link *ReferralLink `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
