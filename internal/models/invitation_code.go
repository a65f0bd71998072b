package models

import "time"

// SingleUseInvitationCode is an explicitly created code a sponsor hands to one
// prospective member. Redemption is terminal: a used code never becomes usable
// again, and revocation is logical so the audit history survives.
type SingleUseInvitationCode struct {
	BaseModel

	UserID         string     `gorm:"type:uuid;index;not null" json:"user_id"`
	InvitationCode string     `gorm:"uniqueIndex;not null" json:"invitation_code"`
	CodeName       *string    `gorm:"size:128" json:"code_name,omitempty"`
	IsUsed         bool       `gorm:"not null;default:false" json:"is_used"`
	UsedBy         *string    `gorm:"type:uuid" json:"used_by,omitempty"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	IsActive       bool       `gorm:"not null;default:true;index" json:"is_active"`
}
