package models

import (
	"time"

	"github.com/google/uuid"
)

// PhoneVerification is the fallback OTP store used when no external SMS
// provider is configured. Phone is stored digits-only.
type PhoneVerification struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Phone string    `gorm:"type:varchar(30);not null;index" json:"phone"`
	Code  string    `gorm:"type:varchar(10);not null" json:"-"`

	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`

	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the code can still be redeemed at the given time.
func (v *PhoneVerification) Usable(now time.Time) bool {
	return !v.Used && now.Before(v.ExpiresAt)
}
