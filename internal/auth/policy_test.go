package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

func policyCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	return domainErr.Code
}

func TestAuthorize(t *testing.T) {
	client := &domain.User{ID: "c1", Role: domain.RoleClient}
	otherClient := &domain.User{ID: "c2", Role: domain.RoleClient}
	agent := &domain.User{ID: "a1", Role: domain.RoleAgent}
	ticket := &domain.Ticket{ID: "t1", CreatorID: client.ID}

	t.Run("nil actor", func(t *testing.T) {
		err := Authorize(nil, ActionViewTicket, ticket)
		require.Equal(t, "UNAUTHORIZED", policyCode(t, err))
	})

	t.Run("create is client only", func(t *testing.T) {
		require.NoError(t, Authorize(client, ActionCreateTicket, nil))
		err := Authorize(agent, ActionCreateTicket, nil)
		require.Equal(t, "FORBIDDEN", policyCode(t, err))
	})

	t.Run("agent only actions", func(t *testing.T) {
		for _, action := range []Action{ActionListAllTickets, ActionListAgents, ActionTriageTicket, ActionDeleteTicket} {
			require.NoError(t, Authorize(agent, action, ticket))
			err := Authorize(client, action, ticket)
			require.Equal(t, "FORBIDDEN", policyCode(t, err), "action %s", action)
		}
	})

	t.Run("view and comment follow ownership", func(t *testing.T) {
		for _, action := range []Action{ActionViewTicket, ActionComment} {
			require.NoError(t, Authorize(client, action, ticket))
			require.NoError(t, Authorize(agent, action, ticket))
			err := Authorize(otherClient, action, ticket)
			require.Equal(t, "ACCESS_DENIED", policyCode(t, err), "action %s", action)
		}
	})

	t.Run("detail edits are unrestricted", func(t *testing.T) {
		require.NoError(t, Authorize(client, ActionEditDetails, ticket))
		require.NoError(t, Authorize(otherClient, ActionEditDetails, ticket))
		require.NoError(t, Authorize(agent, ActionEditDetails, ticket))
	})

	t.Run("unknown action", func(t *testing.T) {
		err := Authorize(agent, Action("ticket:reap"), ticket)
		require.Equal(t, "FORBIDDEN", policyCode(t, err))
	})
}
