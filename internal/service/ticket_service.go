package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdeskpro/helpdesk-service/internal/auth"
	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	"github.com/helpdeskpro/helpdesk-service/internal/events"
	"github.com/helpdeskpro/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

const (
	minTitleLen       = 5
	minDescriptionLen = 10
)

// TicketService is the lifecycle manager: it enforces state
// transitions, field-level authorization, and the closed-ticket write
// lock. All mutations go through here.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketPatch describes a partial ticket update. Nil fields are left
// untouched. ClearAssignee unassigns the ticket explicitly.
type TicketPatch struct {
	Title         *string
	Description   *string
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	AssigneeID    *string
	ClearAssignee bool
}

// TouchesTriage reports whether the patch changes agent-controlled
// fields.
func (p TicketPatch) TouchesTriage() bool {
	return p.Status != nil || p.Priority != nil || p.AssigneeID != nil || p.ClearAssignee
}

// TicketListFilter carries the optional equality filters for agent
// listings.
type TicketListFilter struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
}

// UserRef is the identity slice of a user attached to ticket views.
type UserRef struct {
	ID       string
	Username string
	Name     string
	Email    string
	Role     domain.Role
}

// CommentView pairs a comment with its author identity.
type CommentView struct {
	Comment domain.Comment
	Author  *UserRef
}

// TicketView is a ticket with creator, assignee, and full thread
// attached, the shape every read operation returns.
type TicketView struct {
	Ticket   domain.Ticket
	Creator  *UserRef
	Assignee *UserRef
	Comments []CommentView
}

// Create opens a new ticket for a client.
func (s *TicketService) Create(ctx context.Context, creator *domain.User, input TicketCreateInput) (*TicketView, error) {
	if err := auth.Authorize(creator, auth.ActionCreateTicket, nil); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if len(title) < minTitleLen {
		return nil, apperrors.NewValidationError("title must be at least 5 characters", map[string]any{"field": "title"})
	}
	if len(description) < minDescriptionLen {
		return nil, apperrors.NewValidationError("description must be at least 10 characters", map[string]any{"field": "description"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority"})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatorID:   creator.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  creator.ID,
		Payload: events.TicketCreatedPayload{
			Title:         ticket.Title,
			Priority:      ticket.Priority,
			CreatorEmail:  creator.Email,
			CreatorName:   creator.Name,
			TicketCreated: ticket.CreatedAt,
		},
	})

	return &TicketView{
		Ticket:   *ticket,
		Creator:  userRef(creator),
		Comments: []CommentView{},
	}, nil
}

// Get fetches a ticket with its thread, enforcing client ownership.
func (s *TicketService) Get(ctx context.Context, requester *domain.User, ticketID string) (*TicketView, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(requester, auth.ActionViewTicket, ticket); err != nil {
		return nil, err
	}
	return s.buildView(ctx, ticket)
}

// ListForAgent returns all tickets matching the optional equality
// filters, newest first, with creator, assignee, and thread attached.
func (s *TicketService) ListForAgent(ctx context.Context, requester *domain.User, filter TicketListFilter) ([]TicketView, error) {
	if err := auth.Authorize(requester, auth.ActionListAllTickets, nil); err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{}
	if filter.Status != nil {
		repoFilter.Statuses = []domain.TicketStatus{*filter.Status}
	}
	if filter.Priority != nil {
		repoFilter.Priorities = []domain.TicketPriority{*filter.Priority}
	}
	return s.listViews(ctx, repoFilter)
}

// ListMine returns the caller's own tickets, newest first.
func (s *TicketService) ListMine(ctx context.Context, requester *domain.User) ([]TicketView, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return s.listViews(ctx, repository.TicketFilter{CreatorID: &requester.ID})
}

// Update applies a partial update. Status, priority, and assignment
// require the agent role; a role violation leaves the ticket untouched.
// Closing is monotonic: a closed ticket accepts no status change.
func (s *TicketService) Update(ctx context.Context, requester *domain.User, ticketID string, patch TicketPatch) (*TicketView, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	action := auth.ActionEditDetails
	if patch.TouchesTriage() {
		action = auth.ActionTriageTicket
	}
	if err := auth.Authorize(requester, action, ticket); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if len(title) < minTitleLen {
			return nil, apperrors.NewValidationError("title must be at least 5 characters", map[string]any{"field": "title"})
		}
		ticket.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if len(description) < minDescriptionLen {
			return nil, apperrors.NewValidationError("description must be at least 10 characters", map[string]any{"field": "description"})
		}
		ticket.Description = description
	}

	wasClosed := ticket.Closed()
	oldStatus := ticket.Status
	oldPriority := ticket.Priority
	oldAssignee := ticket.AssigneeID

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"field": "status"})
		}
		if wasClosed && *patch.Status != domain.TicketStatusClosed {
			return nil, apperrors.NewInvalidState("closed tickets cannot be reopened")
		}
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority"})
		}
		ticket.Priority = *patch.Priority
	}
	if patch.ClearAssignee {
		ticket.AssigneeID = nil
	} else if patch.AssigneeID != nil {
		assignee, err := s.users.GetByID(ctx, *patch.AssigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("assignee", map[string]any{"assignee_id": *patch.AssigneeID})
			}
			return nil, apperrors.MapError(err)
		}
		if assignee.Role != domain.RoleAgent {
			return nil, apperrors.NewValidationError("assignee must be an agent", map[string]any{"field": "assignee_id"})
		}
		ticket.AssigneeID = &assignee.ID
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordChanges(ctx, requester, ticket, oldStatus, oldPriority, oldAssignee)

	if !sameAssignee(oldAssignee, ticket.AssigneeID) {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			ActorID:  requester.ID,
			Payload:  events.TicketAssignedPayload{AssigneeID: ticket.AssigneeID},
		})
	}

	if !wasClosed && ticket.Closed() {
		if creator, err := s.users.GetByID(ctx, ticket.CreatorID); err == nil {
			s.publishEvent(ctx, events.Event{
				Type:     events.EventTicketClosed,
				TicketID: ticket.ID,
				ActorID:  requester.ID,
				Payload: events.TicketClosedPayload{
					Title:        ticket.Title,
					CreatorEmail: creator.Email,
					CreatorName:  creator.Name,
				},
			})
		}
	}

	return s.buildView(ctx, ticket)
}

// Delete removes a ticket and its entire comment thread. Agent-only and
// irreversible.
func (s *TicketService) Delete(ctx context.Context, requester *domain.User, ticketID string) error {
	if err := auth.Authorize(requester, auth.ActionDeleteTicket, nil); err != nil {
		return err
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// AddComment appends a comment to a ticket's thread. Closed tickets
// reject comments from anyone; agent replies notify the creator.
func (s *TicketService) AddComment(ctx context.Context, author *domain.User, ticketID, message string) (*CommentView, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("comment cannot be empty", map[string]any{"field": "message"})
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(author, auth.ActionComment, ticket); err != nil {
		return nil, err
	}
	if ticket.Closed() {
		return nil, apperrors.NewInvalidState("cannot comment on closed ticket")
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: author.ID,
		Message:  message,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	// A new comment counts as ticket activity.
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAppended,
		TicketID: ticket.ID,
		ActorID:  author.ID,
		Payload: events.CommentAppendedPayload{
			CommentID:  comment.ID,
			AuthorRole: author.Role,
		},
	})

	if author.Role == domain.RoleAgent {
		if creator, err := s.users.GetByID(ctx, ticket.CreatorID); err == nil {
			s.publishEvent(ctx, events.Event{
				Type:     events.EventAgentReplied,
				TicketID: ticket.ID,
				ActorID:  author.ID,
				Payload: events.AgentRepliedPayload{
					Title:        ticket.Title,
					AgentName:    author.Name,
					Message:      message,
					CreatorEmail: creator.Email,
					CreatorName:  creator.Name,
				},
			})
		}
	}

	return &CommentView{Comment: *comment, Author: userRef(author)}, nil
}

// ListComments returns a ticket's thread ascending by creation time,
// with author identity attached. Same ownership rule as Get.
func (s *TicketService) ListComments(ctx context.Context, requester *domain.User, ticketID string) ([]CommentView, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(requester, auth.ActionViewTicket, ticket); err != nil {
		return nil, err
	}
	return s.threadViews(ctx, ticket.ID)
}

// ListHistory returns the audit trail for a ticket. Agent-only.
func (s *TicketService) ListHistory(ctx context.Context, requester *domain.User, ticketID string) ([]domain.TicketHistory, error) {
	if err := auth.Authorize(requester, auth.ActionListAllTickets, nil); err != nil {
		return nil, err
	}
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) listViews(ctx context.Context, filter repository.TicketFilter) ([]TicketView, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		view, err := s.buildView(ctx, &tickets[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *TicketService) buildView(ctx context.Context, ticket *domain.Ticket) (*TicketView, error) {
	view := &TicketView{Ticket: *ticket}

	ids := []string{ticket.CreatorID}
	if ticket.AssigneeID != nil {
		ids = append(ids, *ticket.AssigneeID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range users {
		if users[i].ID == ticket.CreatorID {
			view.Creator = userRef(&users[i])
		}
		if ticket.AssigneeID != nil && users[i].ID == *ticket.AssigneeID {
			view.Assignee = userRef(&users[i])
		}
	}

	view.Comments, err = s.threadViews(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *TicketService) threadViews(ctx context.Context, ticketID string) ([]CommentView, error) {
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
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
		return nil, apperrors.MapError(err)
	}
	byID := make(map[string]*UserRef, len(authors))
	for i := range authors {
		byID[authors[i].ID] = userRef(&authors[i])
	}

	views := make([]CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, CommentView{Comment: comment, Author: byID[comment.AuthorID]})
	}
	return views, nil
}

func (s *TicketService) recordChanges(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus, oldPriority domain.TicketPriority, oldAssignee *string) {
	if s.history == nil {
		return
	}
	record := func(changeType domain.TicketChangeType, oldVal, newVal map[string]any) {
		_ = s.history.Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: actor.ID,
			ChangeType:  changeType,
			OldValue:    oldVal,
			NewValue:    newVal,
		})
	}
	if ticket.Status != oldStatus {
		record(domain.ChangeTypeStatus,
			map[string]any{"status": oldStatus},
			map[string]any{"status": ticket.Status})
	}
	if ticket.Priority != oldPriority {
		record(domain.ChangeTypePriority,
			map[string]any{"priority": oldPriority},
			map[string]any{"priority": ticket.Priority})
	}
	if !sameAssignee(oldAssignee, ticket.AssigneeID) {
		record(domain.ChangeTypeAssignee,
			map[string]any{"assignee_id": derefOrNil(oldAssignee)},
			map[string]any{"assignee_id": derefOrNil(ticket.AssigneeID)})
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func userRef(user *domain.User) *UserRef {
	if user == nil {
		return nil
	}
	return &UserRef{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
	}
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
