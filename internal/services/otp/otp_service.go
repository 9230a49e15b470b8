package otp

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/sms"
	"github.com/chamba-tutorias/backend/internal/utils"
)

// CodeTTL is how long an issued code stays redeemable.
const CodeTTL = 10 * time.Minute

var (
	ErrInvalidPhone = errors.New("número de teléfono inválido")
	ErrInvalidCode  = errors.New("código inválido o expirado")
)

// Service issues and redeems one-time codes. Delivery is simulated (console
// log); the designated test number bypasses persistence entirely.
type Service struct {
	DB     *gorm.DB
	Sender sms.Sender

	// Now is swappable for expiry tests.
	Now func() time.Time
}

func NewService(db *gorm.DB, sender sms.Sender) *Service {
	return &Service{DB: db, Sender: sender, Now: time.Now}
}

func generateCode() string {
	return fmt.Sprintf("%06d", rand.Intn(900000)+100000)
}

// SendCode issues a fresh code for the phone, replacing any earlier one.
func (s *Service) SendCode(phone string) error {
	if !utils.ValidPhoneLength(phone) {
		return ErrInvalidPhone
	}

	formatted := utils.FormatPhone(phone)
	if formatted == sms.TestPhone {
		sms.LogOTP(s.Sender, formatted, sms.TestCode, true)
		return nil
	}

	clean := utils.CleanPhone(phone)
	code := generateCode()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("phone = ?", clean).Delete(&models.PhoneVerification{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PhoneVerification{
			Phone:     clean,
			Code:      code,
			ExpiresAt: s.Now().Add(CodeTTL),
		}).Error
	})
	if err != nil {
		return err
	}

	sms.LogOTP(s.Sender, formatted, code, false)
	return nil
}

// Verify redeems a code and upserts the user for the phone. The returned
// user always carries the "+"-prefixed phone and a fresh verification stamp.
func (s *Service) Verify(phone, code string) (*models.User, error) {
	if phone == "" || code == "" {
		return nil, ErrInvalidPhone
	}

	formatted := utils.FormatPhone(phone)
	clean := utils.CleanPhone(phone)

	if formatted == sms.TestPhone {
		if code != sms.TestCode {
			return nil, ErrInvalidCode
		}
	} else {
		var v models.PhoneVerification
		err := s.DB.
			Where("phone = ? AND code = ? AND used = ? AND expires_at > ?", clean, code, false, s.Now()).
			Order("created_at DESC").
			First(&v).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidCode
			}
			return nil, err
		}
		if err := s.DB.Model(&v).Update("used", true).Error; err != nil {
			return nil, err
		}
	}

	user, err := s.upsertUser(formatted, clean)
	if err != nil {
		return nil, err
	}

	// Leftover codes for this phone are dead weight now.
	s.DB.Where("phone = ?", clean).Delete(&models.PhoneVerification{})

	return user, nil
}

func (s *Service) upsertUser(formatted, clean string) (*models.User, error) {
	now := s.Now()

	var user models.User
	err := s.DB.Where("phone = ?", formatted).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Legacy rows kept digits-only phones; canonicalize on sight.
		err = s.DB.Where("phone = ?", clean).First(&user).Error
		if err == nil {
			user.Phone = formatted
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Phone:           formatted,
			Role:            models.RoleEstudiante,
			PhoneVerifiedAt: &now,
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	user.PhoneVerifiedAt = &now
	if err := s.DB.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
