package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
)

// MemoryStore backs every repository interface with mutex-guarded maps.
// It is used when POSTGRES_DSN is not configured and throughout the
// test suite. Not-found conditions surface as pgx.ErrNoRows so error
// mapping stays identical to the Postgres-backed repositories.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	tickets  map[string]domain.Ticket
	comments map[string][]domain.Comment
	history  map[string][]domain.TicketHistory
	resets   map[string]PasswordResetToken
}

// NewMemoryStore initializes an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		tickets:  make(map[string]domain.Ticket),
		comments: make(map[string][]domain.Comment),
		history:  make(map[string][]domain.TicketHistory),
		resets:   make(map[string]PasswordResetToken),
	}
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return (*memoryUsers)(s) }

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return (*memoryTickets)(s) }

// Comments returns the comment repository view of the store.
func (s *MemoryStore) Comments() CommentRepository { return (*memoryComments)(s) }

// History returns the ticket history repository view of the store.
func (s *MemoryStore) History() TicketHistoryRepository { return (*memoryHistory)(s) }

// PasswordResets returns the reset-token repository view of the store.
func (s *MemoryStore) PasswordResets() PasswordResetRepository { return (*memoryResets)(s) }

type memoryUsers MemoryStore

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.findUser(func(u domain.User) bool { return u.Email == email })
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.findUser(func(u domain.User) bool { return u.Username == username })
}

func (m *memoryUsers) findUser(match func(domain.User) bool) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if match(user) {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.User
	for _, user := range m.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *memoryUsers) ListByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.User
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

type memoryTickets MemoryStore

func (m *memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	// Honor a pre-set creation time so seed data can be backdated.
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (m *memoryTickets) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range m.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.CreatedBefore != nil && !ticket.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *memoryTickets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.tickets, id)
	delete(m.comments, id)
	delete(m.history, id)
	return nil
}

type memoryComments MemoryStore

func (m *memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	m.comments[comment.TicketID] = append(m.comments[comment.TicketID], *comment)
	return nil
}

func (m *memoryComments) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.comments[ticketID]
	result := make([]domain.Comment, len(stored))
	copy(result, stored)
	// Append order already matches creation order; the stable sort only
	// reorders backdated seed comments.
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type memoryHistory MemoryStore

func (m *memoryHistory) Create(_ context.Context, entry *domain.TicketHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.history[entry.TicketID] = append(m.history[entry.TicketID], *entry)
	return nil
}

func (m *memoryHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.history[ticketID]
	result := make([]domain.TicketHistory, len(stored))
	copy(result, stored)
	return result, nil
}

type memoryResets MemoryStore

func (m *memoryResets) Create(_ context.Context, token *PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	m.resets[token.Token] = *token
	return nil
}

func (m *memoryResets) GetByToken(_ context.Context, tokenStr string) (*PasswordResetToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.resets[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &token, nil
}

func (m *memoryResets) MarkUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, token := range m.resets {
		if token.ID == id {
			now := time.Now()
			token.UsedAt = &now
			m.resets[key] = token
			return nil
		}
	}
	return pgx.ErrNoRows
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == priority {
			return true
		}
	}
	return false
}
