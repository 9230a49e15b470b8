package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleEstudiante Role = "ESTUDIANTE"
	RoleTutor      Role = "TUTOR"
)

type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `json:"name"`
	Phone string    `gorm:"type:varchar(30);uniqueIndex" json:"phone"`
	Email string    `gorm:"type:varchar(150)" json:"email,omitempty"`

	Role            Role       `gorm:"type:varchar(20);not null;default:'ESTUDIANTE';index" json:"role"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// HAS ONE tutor_profile (tutor_profiles.user_id -> users.id)
	TutorProfile *TutorProfile `gorm:"foreignKey:UserID;references:ID" json:"tutor_profile,omitempty"`
}
