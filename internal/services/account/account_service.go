package account

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/utils"
)

var (
	ErrUserNotFound  = errors.New("usuario no encontrado")
	ErrPhoneRequired = errors.New("se requiere un número de teléfono verificado para ser tutor")

	// ErrNotApproved is the distinguishable whitelist failure; handlers map
	// it to 403 with code NOT_APPROVED.
	ErrNotApproved = errors.New("tu número no está autorizado para registrarse como tutor")
)

// Service owns role changes and the whitelist gate.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// ChangeRole sets the user's role. Promotion to TUTOR is gated on the
// ApprovedTutor whitelist and stamps the row's used_at once.
func (s *Service) ChangeRole(userID uuid.UUID, role models.Role) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if role == models.RoleTutor {
		if user.Phone == "" {
			return nil, ErrPhoneRequired
		}
		if err := s.consumeApproval(utils.CleanPhone(user.Phone)); err != nil {
			return nil, err
		}
	}

	user.Role = role
	if err := s.DB.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) consumeApproval(cleanPhone string) error {
	var approved models.ApprovedTutor
	err := s.DB.Where("phone = ?", cleanPhone).First(&approved).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotApproved
	}
	if err != nil {
		return err
	}

	if approved.UsedAt == nil {
		now := s.DB.NowFunc()
		approved.UsedAt = &now
		if err := s.DB.Save(&approved).Error; err != nil {
			return err
		}
	}
	return nil
}
