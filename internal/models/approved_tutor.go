package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovedTutor is the phone whitelist a user must pass before taking the
// TUTOR role. Phone is stored digits-only. Lifecycle is independent from
// TutorProfile: removing a row does not demote an already-promoted tutor.
type ApprovedTutor struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Phone string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"phone"`
	Name  string    `gorm:"type:varchar(120)" json:"name"`
	Notes string    `gorm:"type:text" json:"notes"`

	UsedAt *time.Time `json:"used_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
