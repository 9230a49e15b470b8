package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chamba-tutorias/backend/internal/chatbot"
)

type ChatHandler struct {
	Bot *chatbot.Bot
}

func NewChatHandler(bot *chatbot.Bot) *ChatHandler {
	return &ChatHandler{Bot: bot}
}

// Chat runs one conversation turn. Public: the bot itself gates anything
// sensitive behind phone verification.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req chatbot.Request
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}
	if req.Message == "" {
		return badRequest(c, "El mensaje es requerido")
	}

	resp, err := h.Bot.Handle(c.Context(), &req)
	if err != nil {
		return serverError(c, "El asistente no está disponible")
	}

	return c.JSON(resp)
}
