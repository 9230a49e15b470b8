package matching

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/sms"
)

var (
	ErrRequestNotFound     = errors.New("solicitud no encontrada")
	ErrNotOwner            = errors.New("no autorizado")
	ErrRequestClosed       = errors.New("la solicitud ya no acepta ofertas")
	ErrProviderUnavailable = errors.New("tutor no disponible")
	ErrDuplicateOffer      = errors.New("ya existe una oferta para este tutor")
	ErrOfferNotFound       = errors.New("oferta no encontrada")
	ErrNotAssignee         = errors.New("no autorizado")
	ErrAlreadyResponded    = errors.New("esta oferta ya fue respondida")
)

// rankingTTL bounds how long a cached candidate ordering survives, so
// profile edits eventually show up while pagination stays stable between
// the client's 5s polls.
const rankingTTL = 5 * time.Minute

// Service owns candidate search and the offer state machine.
type Service struct {
	DB     *gorm.DB
	RDB    *redis.Client // optional; nil degrades to per-call ranking
	Sender sms.Sender
}

func NewService(db *gorm.DB, rdb *redis.Client, sender sms.Sender) *Service {
	return &Service{DB: db, RDB: rdb, Sender: sender}
}

// Candidate is one ranked tutor for a request.
type Candidate struct {
	ID       uuid.UUID            `json:"id"`
	Name     string               `json:"name"`
	Phone    string               `json:"phone"`
	Profile  *models.TutorProfile `json:"profile"`
	Distance *float64             `json:"distance"`
}

// CandidatePage is one skip/limit window over the ranking.
type CandidatePage struct {
	Providers []Candidate `json:"providers"`
	HasMore   bool        `json:"hasMore"`
	Total     int         `json:"total"`
}

type rankedProvider struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Distance   *float64  `json:"distance"`
}

// Candidates returns active tutors matching the request's subject (and
// grade level, when set), excluding tutors who already hold an offer on it.
func (s *Service) Candidates(ctx context.Context, requesterID, jobRequestID uuid.UUID, skip, limit int) (*CandidatePage, error) {
	var job models.JobRequest
	if err := s.DB.Preload("Offers").First(&job, "id = ?", jobRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if job.ClientID != requesterID {
		return nil, ErrNotOwner
	}

	ranking, err := s.ranking(ctx, &job)
	if err != nil {
		return nil, err
	}

	// Offers made after the ranking was cached must still be excluded.
	offered := make(map[uuid.UUID]bool, len(job.Offers))
	for _, o := range job.Offers {
		offered[o.ProviderID] = true
	}
	filtered := ranking[:0]
	for _, r := range ranking {
		if !offered[r.ProviderID] {
			filtered = append(filtered, r)
		}
	}
	ranking = filtered

	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 3
	}

	total := len(ranking)
	end := skip + limit
	if skip > total {
		skip = total
	}
	if end > total {
		end = total
	}
	window := ranking[skip:end]

	providers, err := s.loadCandidates(window)
	if err != nil {
		return nil, err
	}

	return &CandidatePage{
		Providers: providers,
		HasMore:   total > end,
		Total:     total,
	}, nil
}

func rankingKey(jobID uuid.UUID) string {
	return "providers:" + jobID.String()
}

func (s *Service) ranking(ctx context.Context, job *models.JobRequest) ([]rankedProvider, error) {
	if s.RDB != nil {
		raw, err := s.RDB.Get(ctx, rankingKey(job.ID)).Bytes()
		if err == nil {
			var cached []rankedProvider
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Println("provider ranking cache read failed:", err)
		}
	}

	ranking, err := s.computeRanking(job)
	if err != nil {
		return nil, err
	}

	if s.RDB != nil {
		if raw, err := json.Marshal(ranking); err == nil {
			if err := s.RDB.Set(ctx, rankingKey(job.ID), raw, rankingTTL).Err(); err != nil {
				log.Println("provider ranking cache write failed:", err)
			}
		}
	}

	return ranking, nil
}

func (s *Service) computeRanking(job *models.JobRequest) ([]rankedProvider, error) {
	var profiles []models.TutorProfile
	if err := s.DB.Where("is_active = ?", true).Find(&profiles).Error; err != nil {
		return nil, err
	}

	hasCoords := job.Lat != nil && job.Lng != nil

	ranking := make([]rankedProvider, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if !p.HasSubject(job.Subject) {
			continue
		}
		if job.GradeLevel != nil && !p.HasGradeLevel(*job.GradeLevel) {
			continue
		}
		entry := rankedProvider{ProviderID: p.UserID}
		if hasCoords {
			// TODO: store tutor coordinates and compute real distances;
			// until then this is an admitted placeholder.
			d := rand.Float64()*10 + 1
			entry.Distance = &d
		}
		ranking = append(ranking, entry)
	}

	if hasCoords {
		sort.Slice(ranking, func(i, j int) bool {
			return *ranking[i].Distance < *ranking[j].Distance
		})
	} else {
		rand.Shuffle(len(ranking), func(i, j int) {
			ranking[i], ranking[j] = ranking[j], ranking[i]
		})
	}

	return ranking, nil
}

func (s *Service) loadCandidates(window []rankedProvider) ([]Candidate, error) {
	out := make([]Candidate, 0, len(window))
	for _, r := range window {
		var user models.User
		err := s.DB.Preload("TutorProfile").First(&user, "id = ?", r.ProviderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, Candidate{
			ID:       user.ID,
			Name:     user.Name,
			Phone:    user.Phone,
			Profile:  user.TutorProfile,
			Distance: r.Distance,
		})
	}
	return out, nil
}

// CreateOffer sends the request to one tutor: offer ENVIADO plus request
// PENDIENTE in a single transaction, then a best-effort SMS to the tutor.
func (s *Service) CreateOffer(ctx context.Context, requesterID, jobRequestID, providerID uuid.UUID) (*models.JobOffer, error) {
	var job models.JobRequest
	if err := s.DB.Preload("Client").First(&job, "id = ?", jobRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if job.ClientID != requesterID {
		return nil, ErrNotOwner
	}
	if !job.Offerable() {
		return nil, ErrRequestClosed
	}

	var provider models.User
	if err := s.DB.Preload("TutorProfile").First(&provider, "id = ?", providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}
	if provider.TutorProfile == nil || !provider.TutorProfile.IsActive {
		return nil, ErrProviderUnavailable
	}

	var existing models.JobOffer
	err := s.DB.Where("job_request_id = ? AND provider_id = ?", jobRequestID, providerID).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateOffer
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	offer := models.JobOffer{
		JobRequestID: jobRequestID,
		ProviderID:   providerID,
		Status:       models.OfferStatusEnviado,
		SentAt:       time.Now(),
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&offer).Error; err != nil {
			return err
		}
		return tx.Model(&models.JobRequest{}).
			Where("id = ?", jobRequestID).
			Update("status", models.RequestStatusPendiente).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRanking(ctx, jobRequestID)

	if provider.Phone != "" {
		studentName := ""
		if job.Client != nil {
			studentName = job.Client.Name
		}
		body := sms.ProviderNewRequestMessage(provider.Name, studentName, job.Subject.Label())
		if err := s.Sender.Send(provider.Phone, body); err != nil {
			log.Println("offer SMS failed:", err)
		}
	} else {
		log.Println("provider has no phone number, skipping SMS")
	}

	return &offer, nil
}

// Respond records the tutor's answer. Accepting is atomic: this offer
// ACEPTADO, the request CONFIRMADO and every sibling ENVIADO offer
// RECHAZADO in one transaction. Rejecting the last ENVIADO offer flips the
// request to RECHAZADO so the student can pick again.
func (s *Service) Respond(ctx context.Context, providerID, offerID uuid.UUID, accept bool) (*models.JobOffer, error) {
	var offer models.JobOffer
	err := s.DB.Preload("JobRequest").Preload("JobRequest.Client").First(&offer, "id = ?", offerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	if offer.ProviderID != providerID {
		return nil, ErrNotAssignee
	}
	if offer.Status != models.OfferStatusEnviado {
		return nil, ErrAlreadyResponded
	}

	var provider models.User
	if err := s.DB.First(&provider, "id = ?", providerID).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	job := offer.JobRequest
	subjectLabel := job.Subject.Label()
	clientName, clientPhone := "", ""
	if job.Client != nil {
		clientName = job.Client.Name
		clientPhone = job.Client.Phone
	}

	if accept {
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&offer).Updates(map[string]interface{}{
				"status":       models.OfferStatusAceptado,
				"responded_at": now,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.JobRequest{}).
				Where("id = ?", offer.JobRequestID).
				Update("status", models.RequestStatusConfirmado).Error; err != nil {
				return err
			}
			return tx.Model(&models.JobOffer{}).
				Where("job_request_id = ? AND id <> ? AND status = ?",
					offer.JobRequestID, offer.ID, models.OfferStatusEnviado).
				Updates(map[string]interface{}{
					"status":       models.OfferStatusRechazado,
					"responded_at": now,
				}).Error
		})
		if err != nil {
			return nil, err
		}

		if clientPhone != "" {
			body := sms.ClientConfirmationMessage(clientName, provider.Name, subjectLabel)
			if err := s.Sender.Send(clientPhone, body); err != nil {
				log.Println("confirmation SMS failed:", err)
			}
		}
		return &offer, nil
	}

	allRejected := false
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&offer).Updates(map[string]interface{}{
			"status":       models.OfferStatusRechazado,
			"responded_at": now,
		}).Error; err != nil {
			return err
		}

		var pending int64
		if err := tx.Model(&models.JobOffer{}).
			Where("job_request_id = ? AND status = ?", offer.JobRequestID, models.OfferStatusEnviado).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending == 0 {
			allRejected = true
			return tx.Model(&models.JobRequest{}).
				Where("id = ?", offer.JobRequestID).
				Update("status", models.RequestStatusRechazado).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if allRejected && clientPhone != "" {
		body := sms.ClientRejectionMessage(clientName, subjectLabel)
		if err := s.Sender.Send(clientPhone, body); err != nil {
			log.Println("rejection SMS failed:", err)
		}
	}
	return &offer, nil
}

func (s *Service) invalidateRanking(ctx context.Context, jobRequestID uuid.UUID) {
	if s.RDB == nil {
		return
	}
	if err := s.RDB.Del(ctx, rankingKey(jobRequestID)).Err(); err != nil {
		log.Println("provider ranking cache invalidation failed:", err)
	}
}
