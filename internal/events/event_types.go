package events

import (
	"time"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketClosed    EventType = "ticket_closed"
	EventAgentReplied    EventType = "agent_replied"
	EventTicketAssigned  EventType = "ticket_assigned"
	EventCommentAppended EventType = "comment_appended"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload carries what the creator notification needs.
type TicketCreatedPayload struct {
	Title         string                `json:"title"`
	Priority      domain.TicketPriority `json:"priority"`
	CreatorEmail  string                `json:"creator_email"`
	CreatorName   string                `json:"creator_name"`
	TicketCreated time.Time             `json:"ticket_created"`
}

// TicketClosedPayload carries what the close notification needs.
type TicketClosedPayload struct {
	Title        string `json:"title"`
	CreatorEmail string `json:"creator_email"`
	CreatorName  string `json:"creator_name"`
}

// AgentRepliedPayload carries an agent response to the ticket creator.
type AgentRepliedPayload struct {
	Title        string `json:"title"`
	AgentName    string `json:"agent_name"`
	Message      string `json:"message"`
	CreatorEmail string `json:"creator_email"`
	CreatorName  string `json:"creator_name"`
}

// TicketAssignedPayload records assignment changes.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// CommentAppendedPayload records any thread append, client or agent.
type CommentAppendedPayload struct {
	CommentID  string      `json:"comment_id"`
	AuthorRole domain.Role `json:"author_role"`
}
