package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskpro/helpdesk-service/internal/domain"
)

func TestMemoryUsersLookups(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	carol := &domain.User{Username: "carol", Email: "carol@example.com", Name: "Carol", Role: domain.RoleClient}
	amir := &domain.User{Username: "amir", Email: "amir@example.com", Name: "Amir", Role: domain.RoleAgent}
	require.NoError(t, store.Users().Create(ctx, carol))
	require.NoError(t, store.Users().Create(ctx, amir))
	require.NotEmpty(t, carol.ID)

	byEmail, err := store.Users().GetByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	require.Equal(t, carol.ID, byEmail.ID)

	byUsername, err := store.Users().GetByUsername(ctx, "amir")
	require.NoError(t, err)
	require.Equal(t, amir.ID, byUsername.ID)

	_, err = store.Users().GetByID(ctx, "missing")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	agents, err := store.Users().ListByRole(ctx, domain.RoleAgent)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	require.Equal(t, amir.ID, agents[0].ID)

	both, err := store.Users().ListByIDs(ctx, []string{carol.ID, amir.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, both, 2)
}

func TestMemoryTicketFilter(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	mk := func(status domain.TicketStatus, priority domain.TicketPriority, creator string, age time.Duration) *domain.Ticket {
		ticket := &domain.Ticket{
			Title:       "ticket",
			Description: "description",
			Status:      status,
			Priority:    priority,
			CreatorID:   creator,
			CreatedAt:   now.Add(-age),
		}
		require.NoError(t, store.Tickets().Create(ctx, ticket))
		return ticket
	}

	oldOpen := mk(domain.TicketStatusOpen, domain.TicketPriorityHigh, "c1", 48*time.Hour)
	newOpen := mk(domain.TicketStatusOpen, domain.TicketPriorityLow, "c1", time.Hour)
	closed := mk(domain.TicketStatusClosed, domain.TicketPriorityHigh, "c2", 24*time.Hour)

	all, err := store.Tickets().ListWithFilter(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	require.Equal(t, newOpen.ID, all[0].ID)
	require.Equal(t, oldOpen.ID, all[2].ID)

	creator := "c1"
	mine, err := store.Tickets().ListWithFilter(ctx, TicketFilter{CreatorID: &creator})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	open, err := store.Tickets().ListWithFilter(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}})
	require.NoError(t, err)
	require.Len(t, open, 2)

	high, err := store.Tickets().ListWithFilter(ctx, TicketFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityHigh}})
	require.NoError(t, err)
	require.Len(t, high, 2)

	cutoff := now.Add(-12 * time.Hour)
	stale, err := store.Tickets().ListWithFilter(ctx, TicketFilter{CreatedBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, stale, 2)
	for _, ticket := range stale {
		require.NotEqual(t, newOpen.ID, ticket.ID)
	}
	_ = closed
}

func TestMemoryCommentsOrderAndCascade(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ticket := &domain.Ticket{Title: "t", Description: "d", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow, CreatorID: "c1"}
	require.NoError(t, store.Tickets().Create(ctx, ticket))

	err := store.Comments().Create(ctx, &domain.Comment{TicketID: "missing", AuthorID: "c1", Message: "x"})
	require.ErrorIs(t, err, pgx.ErrNoRows)

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, store.Comments().Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: "c1", Message: msg}))
	}
	thread, err := store.Comments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	require.Equal(t, "one", thread[0].Message)
	require.Equal(t, "three", thread[2].Message)

	require.NoError(t, store.Tickets().Delete(ctx, ticket.ID))
	thread, err = store.Comments().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Empty(t, thread)

	require.ErrorIs(t, store.Tickets().Delete(ctx, ticket.ID), pgx.ErrNoRows)
}

func TestMemoryPasswordResets(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token := &PasswordResetToken{UserID: "u1", Token: "tok-123", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.PasswordResets().Create(ctx, token))

	loaded, err := store.PasswordResets().GetByToken(ctx, "tok-123")
	require.NoError(t, err)
	require.Nil(t, loaded.UsedAt)

	require.NoError(t, store.PasswordResets().MarkUsed(ctx, loaded.ID))
	used, err := store.PasswordResets().GetByToken(ctx, "tok-123")
	require.NoError(t, err)
	require.NotNil(t, used.UsedAt)

	_, err = store.PasswordResets().GetByToken(ctx, "nope")
	require.ErrorIs(t, err, pgx.ErrNoRows)
}
