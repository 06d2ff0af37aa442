package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskpro/helpdesk-service/internal/api/dto"
	"github.com/helpdeskpro/helpdesk-service/internal/auth"
	"github.com/helpdeskpro/helpdesk-service/internal/service"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

// CommentsHandler manages ticket thread endpoints.
type CommentsHandler struct {
	service *service.TicketService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(ticketService *service.TicketService) *CommentsHandler {
	return &CommentsHandler{service: ticketService}
}

// CreateComment POST /api/comments.
func (h *CommentsHandler) CreateComment(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticket_id required", map[string]any{"field": "ticket_id"})
	}

	view, err := h.service.AddComment(c.Context(), user, req.TicketID, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(*view)})
}

// ListComments GET /api/comments/:ticketId.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	views, err := h.service.ListComments(c.Context(), user, c.Params("ticketId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponses(views)})
}
