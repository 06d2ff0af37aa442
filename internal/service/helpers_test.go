package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	"github.com/helpdeskpro/helpdesk-service/internal/events"
	"github.com/helpdeskpro/helpdesk-service/internal/notify"
	"github.com/helpdeskpro/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskpro/helpdesk-service/pkg/util"
)

type notifyCall struct {
	Email   string
	Name    string
	Kind    notify.TemplateKind
	Payload notify.Payload
}

// fakeNotifier records every delivery attempt. Set fail to simulate a
// relay outage.
type fakeNotifier struct {
	mu    sync.Mutex
	fail  bool
	calls []notifyCall
}

func (f *fakeNotifier) Notify(_ context.Context, email, name string, kind notify.TemplateKind, payload notify.Payload) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{Email: email, Name: name, Kind: kind, Payload: payload})
	return !f.fail
}

func (f *fakeNotifier) callsOfKind(kind notify.TemplateKind) []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notifyCall
	for _, call := range f.calls {
		if call.Kind == kind {
			out = append(out, call)
		}
	}
	return out
}

type testEnv struct {
	store      *repository.MemoryStore
	tickets    *TicketService
	dispatcher events.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		HistoryRepo: store.History(),
		Dispatcher:  dispatcher,
	})
	return &testEnv{store: store, tickets: tickets, dispatcher: dispatcher}
}

func (e *testEnv) newUser(t *testing.T, role domain.Role, name string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username: name + "-" + uuid.NewString()[:8],
		Email:    name + "-" + uuid.NewString()[:8] + "@example.com",
		Name:     name,
		Role:     role,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *testEnv) newTicket(t *testing.T, creator *domain.User) *TicketView {
	t.Helper()
	view, err := e.tickets.Create(context.Background(), creator, TicketCreateInput{
		Title:       "printer is on fire",
		Description: "smoke is coming out of the tray",
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	return view
}

// backdatedTicket inserts a ticket directly into the store with an old
// creation time, bypassing service-side timestamping.
func (e *testEnv) backdatedTicket(t *testing.T, creator *domain.User, status domain.TicketStatus, age time.Duration, now time.Time) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		Title:       "stale request",
		Description: "nobody has looked at this yet",
		Status:      status,
		Priority:    domain.TicketPriorityMedium,
		CreatorID:   creator.ID,
		CreatedAt:   now.Add(-age),
	}
	require.NoError(t, e.store.Tickets().Create(context.Background(), ticket))
	return ticket
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code, "unexpected error code for %v", err)
}
