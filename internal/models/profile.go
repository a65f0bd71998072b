package models

// Profile represents a club member. Only the fields the referral system owns or
// reads live here; the rest of the member record belongs to the account service.
type Profile struct {
	BaseModel

	FirstName string  `gorm:"size:128" json:"first_name"`
	LastName  string  `gorm:"size:128" json:"last_name"`
	Username  *string `gorm:"uniqueIndex;size:64" json:"username,omitempty"`
	Email     string  `gorm:"uniqueIndex;not null" json:"email"`
	AvatarURL string  `json:"avatar_url,omitempty"`

	// ReferralCode is the member's primary sponsorship code. It stays nil until
	// first requested and is immutable once set.
	ReferralCode *string `gorm:"uniqueIndex" json:"referral_code,omitempty"`
}
