package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusBorrador   RequestStatus = "BORRADOR"   // created, no offers yet
	RequestStatusPendiente  RequestStatus = "PENDIENTE"  // at least one offer sent
	RequestStatusConfirmado RequestStatus = "CONFIRMADO" // a tutor accepted
	RequestStatusRechazado  RequestStatus = "RECHAZADO"  // every offer rejected, re-offerable
	RequestStatusCancelado  RequestStatus = "CANCELADO"
	RequestStatusCompletado RequestStatus = "COMPLETADO"
)

// JobRequest is a student's ask for a tutoring session.
type JobRequest struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`

	Subject    Subject     `gorm:"type:varchar(30);not null" json:"subject"`
	GradeLevel *GradeLevel `gorm:"type:varchar(30)" json:"grade_level,omitempty"`

	PreferredTime time.Time `json:"preferred_time"`
	Topic         string    `gorm:"type:text" json:"topic"`

	// Placeholder coordinates; when set, provider ranking pretends to know
	// distances (see matching service).
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	Status RequestStatus `gorm:"type:varchar(20);not null;default:'BORRADOR';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client *User      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Offers []JobOffer `gorm:"foreignKey:JobRequestID" json:"offers,omitempty"`
}

// Offerable reports whether the student may still send offers for this
// request. RECHAZADO counts as a soft reset, same as BORRADOR.
func (r *JobRequest) Offerable() bool {
	switch r.Status {
	case RequestStatusBorrador, RequestStatusPendiente, RequestStatusRechazado:
		return true
	}
	return false
}
