package auth

import (
	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

// Action names a capability checked against a ticket.
type Action string

const (
	ActionCreateTicket   Action = "ticket:create"
	ActionViewTicket     Action = "ticket:view"
	ActionListAllTickets Action = "ticket:list_all"
	ActionEditDetails    Action = "ticket:edit_details"
	ActionTriageTicket   Action = "ticket:triage"
	ActionDeleteTicket   Action = "ticket:delete"
	ActionComment        Action = "ticket:comment"
	ActionListAgents     Action = "user:list_agents"
)

// Authorize is the single place ticket permissions are decided. It
// returns nil when the actor may perform the action, a FORBIDDEN error
// on a role violation, and an ACCESS_DENIED error when a client reaches
// for a ticket that is not theirs. Ticket may be nil for actions that
// do not target an existing ticket.
func Authorize(actor *domain.User, action Action, ticket *domain.Ticket) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}

	switch action {
	case ActionCreateTicket:
		if actor.Role != domain.RoleClient {
			return apperrors.NewForbidden("only clients can create tickets")
		}
		return nil

	case ActionListAllTickets, ActionListAgents:
		if actor.Role != domain.RoleAgent {
			return apperrors.NewForbidden("agent role required")
		}
		return nil

	case ActionTriageTicket:
		if actor.Role != domain.RoleAgent {
			return apperrors.NewForbidden("only agents can modify status, priority, or assignment")
		}
		return nil

	case ActionDeleteTicket:
		if actor.Role != domain.RoleAgent {
			return apperrors.NewForbidden("only agents can delete tickets")
		}
		return nil

	case ActionViewTicket, ActionComment:
		if actor.Role == domain.RoleAgent {
			return nil
		}
		if ticket == nil || ticket.CreatorID != actor.ID {
			return apperrors.NewAccessDenied()
		}
		return nil

	case ActionEditDetails:
		// Title/description edits carry no ownership restriction.
		return nil
	}

	return apperrors.NewForbidden("unknown action")
}
