package models

import (
	"time"

	"github.com/google/uuid"
)

type OfferStatus string

const (
	OfferStatusEnviado   OfferStatus = "ENVIADO"
	OfferStatusAceptado  OfferStatus = "ACEPTADO"
	OfferStatusRechazado OfferStatus = "RECHAZADO"
)

// JobOffer links one JobRequest to one candidate tutor. Unique per
// (request, tutor) pair; at most one ACEPTADO offer may exist per request.
type JobOffer struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobRequestID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_offer_request_provider" json:"job_request_id"`
	ProviderID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_offer_request_provider" json:"provider_id"`

	Status OfferStatus `gorm:"type:varchar(20);not null;default:'ENVIADO';index" json:"status"`

	SentAt      time.Time  `gorm:"autoCreateTime" json:"sent_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	JobRequest *JobRequest `gorm:"foreignKey:JobRequestID" json:"job_request,omitempty"`
	Provider   *User       `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}
