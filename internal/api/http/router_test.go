package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/api/http/handlers"
	"github.com/helpdeskpro/helpdesk-service/internal/auth"
	"github.com/helpdeskpro/helpdesk-service/internal/config"
	"github.com/helpdeskpro/helpdesk-service/internal/events"
	"github.com/helpdeskpro/helpdesk-service/internal/observability"
	"github.com/helpdeskpro/helpdesk-service/internal/persistence"
	"github.com/helpdeskpro/helpdesk-service/internal/repository"
	"github.com/helpdeskpro/helpdesk-service/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()

	cfg := config.Config{}
	cfg.App.Name = "helpdesk-service"
	cfg.App.Version = "test"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 60
	cfg.Auth.PasswordResetTTLMinutes = 30
	cfg.Auth.BcryptCost = 4

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          store.Users(),
		PasswordResetRepo: store.PasswordResets(),
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		HistoryRepo: store.History(),
		Dispatcher:  dispatcher,
	})
	userService := service.NewUserService(store.Users(), nil, logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Comments:       handlers.NewCommentsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users()),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func register(t *testing.T, app *fiber.App, username, role string) (token, userID string) {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
		"name":     "Test " + username,
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, status, "register %s: %v", username, body)
	data := body["data"].(map[string]any)
	token = data["token"].(string)
	userID = data["user"].(map[string]any)["id"].(string)
	return token, userID
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alive", body["status"])

	// Redis is absent in the test wiring, so readiness degrades.
	status, body = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	require.Equal(t, "in-memory", details["postgres"])
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	app := newTestApp(t)

	token, _ := register(t, app, "carol", "client")
	require.NotEmpty(t, token)

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "dave",
		"email":    "dave@example.com",
		"password": "short",
		"name":     "Dave",
		"role":     "client",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "carol@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "carol@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["data"].(map[string]any)["token"])
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	clientToken, _ := register(t, app, "carol", "client")
	strangerToken, _ := register(t, app, "dave", "client")
	agentToken, agentID := register(t, app, "amir", "agent")

	// Unauthenticated requests are rejected up front.
	status, body := doJSON(t, app, http.MethodGet, "/api/tickets/my", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	// Agents cannot open tickets.
	status, body = doJSON(t, app, http.MethodPost, "/api/tickets", agentToken, fiber.Map{
		"title":       "agent ticket",
		"description": "should be rejected outright",
	})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, body = doJSON(t, app, http.MethodPost, "/api/tickets", clientToken, fiber.Map{
		"title":       "laptop will not boot",
		"description": "black screen since this morning",
		"priority":    "high",
	})
	require.Equal(t, http.StatusCreated, status)
	ticket := body["data"].(map[string]any)
	ticketID := ticket["id"].(string)
	require.Equal(t, "open", ticket["status"])

	// Only agents may list the full queue.
	status, body = doJSON(t, app, http.MethodGet, "/api/tickets", clientToken, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, body = doJSON(t, app, http.MethodGet, "/api/tickets?status=open", agentToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"].([]any), 1)

	status, body = doJSON(t, app, http.MethodGet, "/api/tickets/my", clientToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["data"].([]any), 1)

	// Another client cannot read a foreign ticket.
	status, body = doJSON(t, app, http.MethodGet, "/api/tickets/"+ticketID, strangerToken, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "ACCESS_DENIED", errorCode(t, body))

	// Triage stays agent-only.
	status, body = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, clientToken, fiber.Map{"status": "closed"})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, body = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, agentToken, fiber.Map{
		"status":      "in_progress",
		"assignee_id": agentID,
	})
	require.Equal(t, http.StatusOK, status)
	updated := body["data"].(map[string]any)
	require.Equal(t, "in_progress", updated["status"])
	require.Equal(t, agentID, updated["assignee"].(map[string]any)["id"])

	status, body = doJSON(t, app, http.MethodPost, "/api/comments", clientToken, fiber.Map{
		"ticket_id": ticketID,
		"message":   "any news?",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/comments", agentToken, fiber.Map{
		"ticket_id": ticketID,
		"message":   "replacement ordered",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/comments/"+ticketID, clientToken, nil)
	require.Equal(t, http.StatusOK, status)
	thread := body["data"].([]any)
	require.Len(t, thread, 2)
	require.Equal(t, "any news?", thread[0].(map[string]any)["message"])

	status, _ = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, agentToken, fiber.Map{"status": "closed"})
	require.Equal(t, http.StatusOK, status)

	// The closed-ticket write lock shows up as INVALID_STATE on the wire.
	status, body = doJSON(t, app, http.MethodPost, "/api/comments", clientToken, fiber.Map{
		"ticket_id": ticketID,
		"message":   "one more thing",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_STATE", errorCode(t, body))

	status, body = doJSON(t, app, http.MethodPatch, "/api/tickets/"+ticketID, agentToken, fiber.Map{"status": "open"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_STATE", errorCode(t, body))

	// Agent-only history endpoint records the triage trail.
	status, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/tickets/%s/history", ticketID), agentToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["data"].([]any))

	status, _ = doJSON(t, app, http.MethodDelete, "/api/tickets/"+ticketID, agentToken, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/tickets/"+ticketID, agentToken, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestAgentRosterEndpoint(t *testing.T) {
	app := newTestApp(t)

	clientToken, _ := register(t, app, "carol", "client")
	agentToken, agentID := register(t, app, "amir", "agent")

	status, body := doJSON(t, app, http.MethodGet, "/api/users/agents", clientToken, nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, body = doJSON(t, app, http.MethodGet, "/api/users/agents", agentToken, nil)
	require.Equal(t, http.StatusOK, status)
	agents := body["data"].([]any)
	require.Len(t, agents, 1)
	require.Equal(t, agentID, agents[0].(map[string]any)["id"])
}

func TestInvalidTokenRejected(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/tickets/my", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, body))
}
