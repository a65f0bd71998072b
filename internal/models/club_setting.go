package models

import "time"

// ClubSetting persists administrator-managed values that should survive restarts.
type ClubSetting struct {
	Key       string    `gorm:"primaryKey;column:setting_key"`
	Value     string    `gorm:"not null;column:setting_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
