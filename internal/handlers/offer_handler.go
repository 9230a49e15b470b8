package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/matching"
)

type OfferHandler struct {
	DB       *gorm.DB
	Matching *matching.Service
}

func NewOfferHandler(db *gorm.DB, matchSvc *matching.Service) *OfferHandler {
	return &OfferHandler{DB: db, Matching: matchSvc}
}

type createOfferRequest struct {
	JobRequestID string `json:"job_request_id"`
	ProviderID   string `json:"provider_id"`
}

// Create sends an offer from the caller's request to a candidate tutor.
func (h *OfferHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req createOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}
	jobID, err := uuid.Parse(req.JobRequestID)
	if err != nil {
		return badRequest(c, "job_request_id inválido")
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return badRequest(c, "provider_id inválido")
	}

	offer, err := h.Matching.CreateOffer(c.Context(), userID, jobID, providerID)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrRequestNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, matching.ErrNotOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		case errors.Is(err, matching.ErrRequestClosed), errors.Is(err, matching.ErrProviderUnavailable):
			return badRequest(c, err.Error())
		case errors.Is(err, matching.ErrDuplicateOffer):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		default:
			return serverError(c, "No se pudo enviar la oferta")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Oferta enviada",
		"data":    offer,
	})
}

type respondOfferRequest struct {
	Action string `json:"action"` // accept | reject
}

// Respond lets the assigned tutor accept or reject an offer. Accepting
// confirms the request and rejects every sibling offer in one transaction.
func (h *OfferHandler) Respond(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	offerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	var req respondOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	var accept bool
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "accept":
		accept = true
	case "reject":
		accept = false
	default:
		return badRequest(c, "action debe ser accept o reject")
	}

	offer, err := h.Matching.Respond(c.Context(), userID, offerID, accept)
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrOfferNotFound):
			return notFound(c, err.Error())
		case errors.Is(err, matching.ErrNotAssignee):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		case errors.Is(err, matching.ErrAlreadyResponded):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		default:
			return serverError(c, "No se pudo responder la oferta")
		}
	}

	message := "Oferta rechazada"
	if accept {
		message = "Oferta aceptada"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    offer,
	})
}

// ProviderInbox lists the offers sent to the calling tutor.
func (h *OfferHandler) ProviderInbox(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var offers []models.JobOffer
	q := h.DB.Preload("JobRequest").Preload("JobRequest.Client").
		Where("provider_id = ?", userID).
		Order("sent_at DESC")
	if status := strings.ToUpper(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&offers).Error; err != nil {
		return serverError(c, "No se pudieron cargar las ofertas")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    offers,
	})
}
