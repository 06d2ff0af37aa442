package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
	"github.com/helpdeskpro/helpdesk-service/internal/notify"
	"github.com/helpdeskpro/helpdesk-service/internal/repository"
	"github.com/helpdeskpro/helpdesk-service/internal/service"
)

type countingNotifier struct {
	count atomic.Int64
}

func (n *countingNotifier) Notify(context.Context, string, string, notify.TemplateKind, notify.Payload) bool {
	n.count.Add(1)
	return true
}

func TestWorkerSweepsOnInterval(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	agent := &domain.User{Username: "amir", Email: "amir@example.com", Name: "Amir", Role: domain.RoleAgent}
	require.NoError(t, store.Users().Create(ctx, agent))
	client := &domain.User{Username: "carol", Email: "carol@example.com", Name: "Carol", Role: domain.RoleClient}
	require.NoError(t, store.Users().Create(ctx, client))

	ticket := &domain.Ticket{
		Title:       "forgotten request",
		Description: "never answered",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityLow,
		CreatorID:   client.ID,
		CreatedAt:   time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, store.Tickets().Create(ctx, ticket))

	notifier := &countingNotifier{}
	escalations := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		Notifier:    notifier,
		StaleAfter:  24 * time.Hour,
	}, zap.NewNop())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		NewEscalationWorker(escalations, 10*time.Millisecond, zap.NewNop()).Run(runCtx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return notifier.count.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
