package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskpro/helpdesk-service/internal/api/dto"
	"github.com/helpdeskpro/helpdesk-service/internal/auth"
	"github.com/helpdeskpro/helpdesk-service/internal/service"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

// UsersHandler manages user directory endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// ListAgents GET /api/users/agents.
func (h *UsersHandler) ListAgents(c *fiber.Ctx) error {
	agents, err := h.service.ListAgents(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for _, agent := range agents {
		items = append(items, dto.AgentResponse{
			ID:       agent.ID,
			Username: agent.Username,
			Name:     agent.Name,
			Email:    agent.Email,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Me GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}
