package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskpro/helpdesk-service/internal/api/dto"
	"github.com/helpdeskpro/helpdesk-service/internal/auth"
	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	"github.com/helpdeskpro/helpdesk-service/internal/service"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	view, err := h.service.Create(c.Context(), user, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(view)})
}

// ListTickets GET /api/tickets. Agent-only, optional status and
// priority equality filters.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.TicketStatus(statusStr)
		if !status.Valid() {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"field": "status"})
		}
		filter.Status = &status
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.TicketPriority(priorityStr)
		if !priority.Valid() {
			return apperrors.NewValidationError("invalid priority filter", map[string]any{"field": "priority"})
		}
		filter.Priority = &priority
	}

	views, err := h.service.ListForAgent(c.Context(), user, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(views)})
}

// ListMyTickets GET /api/tickets/my.
func (h *TicketsHandler) ListMyTickets(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	views, err := h.service.ListMine(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(views)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	view, err := h.service.Get(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := service.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		patch.Priority = &priority
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			patch.ClearAssignee = true
		} else {
			patch.AssigneeID = req.AssigneeID
		}
	}

	view, err := h.service.Update(c.Context(), user, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(view)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), user, c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

// GetHistory GET /api/tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	entries, err := h.service.ListHistory(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketResponse(view *service.TicketView) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          view.Ticket.ID,
		Title:       view.Ticket.Title,
		Description: view.Ticket.Description,
		Status:      view.Ticket.Status,
		Priority:    view.Ticket.Priority,
		Creator:     userRefResponse(view.Creator),
		Assignee:    userRefResponse(view.Assignee),
		Comments:    commentResponses(view.Comments),
		CreatedAt:   view.Ticket.CreatedAt,
		UpdatedAt:   view.Ticket.UpdatedAt,
	}
}

func ticketResponses(views []service.TicketView) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i]))
	}
	return items
}

func userRefResponse(ref *service.UserRef) *dto.UserResponse {
	if ref == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:       ref.ID,
		Username: ref.Username,
		Email:    ref.Email,
		Name:     ref.Name,
		Role:     string(ref.Role),
	}
}

func commentResponses(views []service.CommentView) []dto.CommentResponse {
	items := make([]dto.CommentResponse, 0, len(views))
	for _, view := range views {
		items = append(items, commentResponse(view))
	}
	return items
}

func commentResponse(view service.CommentView) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        view.Comment.ID,
		TicketID:  view.Comment.TicketID,
		Message:   view.Comment.Message,
		Author:    userRefResponse(view.Author),
		CreatedAt: view.Comment.CreatedAt,
	}
}
