package notify

import (
	"context"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
)

// TemplateKind selects the message rendered for a notification.
type TemplateKind string

const (
	KindTicketCreated    TemplateKind = "ticket-created"
	KindTicketResponse   TemplateKind = "ticket-response"
	KindTicketClosed     TemplateKind = "ticket-closed"
	KindUnansweredDigest TemplateKind = "unanswered-digest"
)

// DigestTicket is one line of an unanswered-ticket digest.
type DigestTicket struct {
	ID       string
	Title    string
	Priority domain.TicketPriority
	AgeHours int
}

// Payload carries template data. Only the fields relevant to the
// template kind are set.
type Payload struct {
	TicketID    string
	TicketTitle string
	AgentName   string
	Message     string
	Tickets     []DigestTicket
}

// Notifier delivers a notification to a single recipient. It never
// returns an error; delivery failure is reported as false and the
// implementation logs the cause. Callers treat sends as
// fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, recipientEmail, recipientName string, kind TemplateKind, payload Payload) bool
}
