package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/matching"
)

type JobHandler struct {
	DB       *gorm.DB
	Matching *matching.Service
}

func NewJobHandler(db *gorm.DB, matchSvc *matching.Service) *JobHandler {
	return &JobHandler{DB: db, Matching: matchSvc}
}

// List returns the caller's tutoring requests, newest first.
func (h *JobHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var jobs []models.JobRequest
	q := h.DB.Preload("Offers").Where("client_id = ?", userID).Order("created_at DESC")
	if status := strings.ToUpper(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return serverError(c, "No se pudieron cargar las solicitudes")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    jobs,
	})
}

type createJobRequest struct {
	Subject       string     `json:"subject"`
	GradeLevel    string     `json:"grade_level"`
	PreferredTime *time.Time `json:"preferred_time"`
	Topic         string     `json:"topic"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
}

// Create opens a new tutoring request in draft state.
func (h *JobHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	subject := models.Subject(strings.ToUpper(strings.TrimSpace(req.Subject)))
	if !subject.Valid() {
		return badRequest(c, "Materia inválida")
	}

	job := models.JobRequest{
		ClientID: userID,
		Subject:  subject,
		Topic:    req.Topic,
		Lat:      req.Lat,
		Lng:      req.Lng,
		Status:   models.RequestStatusBorrador,
	}
	if req.PreferredTime != nil {
		job.PreferredTime = *req.PreferredTime
	}
	if req.GradeLevel != "" {
		level := models.GradeLevel(strings.ToUpper(strings.TrimSpace(req.GradeLevel)))
		if !level.Valid() {
			return badRequest(c, "Nivel académico inválido")
		}
		job.GradeLevel = &level
	}

	if err := h.DB.Create(&job).Error; err != nil {
		return serverError(c, "No se pudo crear la solicitud")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Solicitud creada",
		"data":    job,
	})
}

// GetDetail returns one request. The client owner and any tutor with an
// offer on it may read it.
func (h *JobHandler) GetDetail(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	var job models.JobRequest
	err = h.DB.Preload("Client").Preload("Offers").Preload("Offers.Provider").
		First(&job, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Solicitud no encontrada")
		}
		return serverError(c, "No se pudo cargar la solicitud")
	}

	allowed := job.ClientID == userID
	if !allowed {
		for _, o := range job.Offers {
			if o.ProviderID == userID {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "No autorizado",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    job,
	})
}

type patchJobRequest struct {
	Status string `json:"status"`
}

// Patch lets the owner cancel a request that is not already resolved.
func (h *JobHandler) Patch(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	var req patchJobRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}
	if models.RequestStatus(strings.ToUpper(req.Status)) != models.RequestStatusCancelado {
		return badRequest(c, "Solo se permite cancelar la solicitud")
	}

	var job models.JobRequest
	if err := h.DB.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Solicitud no encontrada")
		}
		return serverError(c, "No se pudo cargar la solicitud")
	}
	if job.ClientID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "No autorizado",
		})
	}
	if job.Status == models.RequestStatusCompletado || job.Status == models.RequestStatusCancelado {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "La solicitud ya está cerrada",
		})
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&job).Update("status", models.RequestStatusCancelado).Error; err != nil {
			return err
		}
		now := tx.NowFunc()
		return tx.Model(&models.JobOffer{}).
			Where("job_request_id = ? AND status = ?", job.ID, models.OfferStatusEnviado).
			Updates(map[string]interface{}{
				"status":       models.OfferStatusRechazado,
				"responded_at": now,
			}).Error
	})
	if err != nil {
		return serverError(c, "No se pudo cancelar la solicitud")
	}

	job.Status = models.RequestStatusCancelado
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Solicitud cancelada",
		"data":    job,
	})
}

// Providers returns the ranked tutor candidates for a request, paginated
// with skip/limit over a cached ranking.
func (h *JobHandler) Providers(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 0)

	page, err := h.Matching.Candidates(c.Context(), userID, jobID, skip, limit)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrRequestNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, matching.ErrNotOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		default:
			return serverError(c, "No se pudieron cargar los tutores")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}
