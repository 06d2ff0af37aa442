package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	"github.com/helpdeskpro/helpdesk-service/internal/notify"
	"github.com/helpdeskpro/helpdesk-service/internal/repository"
)

// EscalationService runs the recurring unanswered-ticket check. A
// ticket counts as answered once any comment in its thread was written
// by an agent; everything else past the staleness threshold goes into a
// digest sent to every agent. The sweep never mutates ticket state.
type EscalationService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	notifier   notify.Notifier
	logger     *zap.Logger
	staleAfter time.Duration
}

// EscalationDependencies bundles requirements for the service.
type EscalationDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Notifier    notify.Notifier
	StaleAfter  time.Duration
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies, logger *zap.Logger) *EscalationService {
	staleAfter := deps.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &EscalationService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		notifier:   deps.Notifier,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// Sweep performs one escalation pass at the given reference time. A
// store failure aborts the run; the next scheduled run retries
// independently. A failed send to one agent never blocks the rest.
func (s *EscalationService) Sweep(ctx context.Context, now time.Time) error {
	s.logger.Info("running unanswered tickets check")

	cutoff := now.Add(-s.staleAfter)
	candidates, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:      []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		CreatedBefore: &cutoff,
	})
	if err != nil {
		s.logger.Error("escalation sweep aborted: listing tickets", zap.Error(err))
		return err
	}

	var digest []notify.DigestTicket
	for i := range candidates {
		answered, err := s.hasAgentReply(ctx, candidates[i].ID)
		if err != nil {
			s.logger.Error("escalation sweep aborted: loading thread",
				zap.String("ticket_id", candidates[i].ID), zap.Error(err))
			return err
		}
		if answered {
			continue
		}
		digest = append(digest, notify.DigestTicket{
			ID:       candidates[i].ID,
			Title:    candidates[i].Title,
			Priority: candidates[i].Priority,
			AgeHours: int(now.Sub(candidates[i].CreatedAt).Hours()),
		})
	}

	if len(digest) == 0 {
		s.logger.Info("no unanswered tickets found")
		return nil
	}
	s.logger.Warn("unanswered tickets found", zap.Int("count", len(digest)))

	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		s.logger.Error("escalation sweep aborted: listing agents", zap.Error(err))
		return err
	}

	for _, agent := range agents {
		if !s.notifier.Notify(ctx, agent.Email, agent.Name, notify.KindUnansweredDigest, notify.Payload{Tickets: digest}) {
			s.logger.Warn("reminder delivery failed", zap.String("agent", agent.Email))
		}
	}
	return nil
}

// hasAgentReply evaluates the answered predicate over the entire
// thread: any historical agent comment exempts the ticket.
func (s *EscalationService) hasAgentReply(ctx context.Context, ticketID string) (bool, error) {
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if len(comments) == 0 {
		return false, nil
	}

	authorIDs := make([]string, 0, len(comments))
	seen := map[string]bool{}
	for _, comment := range comments {
		if !seen[comment.AuthorID] {
			seen[comment.AuthorID] = true
			authorIDs = append(authorIDs, comment.AuthorID)
		}
	}
	authors, err := s.users.ListByIDs(ctx, authorIDs)
	if err != nil {
		return false, err
	}
	for _, author := range authors {
		if author.Role == domain.RoleAgent {
			return true, nil
		}
	}
	return false, nil
}
