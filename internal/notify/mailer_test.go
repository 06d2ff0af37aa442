package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/config"
	"github.com/helpdeskpro/helpdesk-service/internal/domain"
)

func configuredMailer(send func(string, smtp.Auth, string, []string, []byte) error) *SMTPMailer {
	m := NewSMTPMailer(config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "mailer",
		Password: "secret",
		From:     "noreply@helpdeskpro.example",
	}, zap.NewNop())
	m.send = send
	return m
}

func TestNotifyUnconfiguredLogsAndSucceeds(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{}, zap.NewNop())
	require.False(t, m.Configured())
	ok := m.Notify(context.Background(), "carol@example.com", "Carol", KindTicketCreated, Payload{
		TicketID:    "abcdef12-3456",
		TicketTitle: "printer on fire",
	})
	require.True(t, ok)
}

func TestNotifySendsMessage(t *testing.T) {
	var gotTo []string
	var gotMsg []byte
	m := configuredMailer(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		require.Equal(t, "smtp.example.com:587", addr)
		require.Equal(t, "noreply@helpdeskpro.example", from)
		gotTo = to
		gotMsg = msg
		return nil
	})

	ok := m.Notify(context.Background(), "carol@example.com", "Carol", KindTicketResponse, Payload{
		TicketID:    "abcdef123456",
		TicketTitle: "printer on fire",
		AgentName:   "Amir",
		Message:     "try the extinguisher",
	})
	require.True(t, ok)
	require.Equal(t, []string{"carol@example.com"}, gotTo)

	body := string(gotMsg)
	require.Contains(t, body, "Subject: [HelpDeskPro] New Response: printer on fire")
	require.Contains(t, body, "#abcdef12")
	require.Contains(t, body, "Amir")
	require.Contains(t, body, "try the extinguisher")
}

func TestNotifyReportsFailure(t *testing.T) {
	m := configuredMailer(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	})
	ok := m.Notify(context.Background(), "carol@example.com", "Carol", KindTicketClosed, Payload{TicketTitle: "x"})
	require.False(t, ok)
}

func TestDigestTemplate(t *testing.T) {
	var gotMsg []byte
	m := configuredMailer(func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	})

	ok := m.Notify(context.Background(), "amir@example.com", "Amir", KindUnansweredDigest, Payload{
		Tickets: []DigestTicket{
			{ID: "11111111aaaa", Title: "no sound", Priority: domain.TicketPriorityHigh, AgeHours: 25},
			{ID: "22222222bbbb", Title: "slow laptop", Priority: domain.TicketPriorityLow, AgeHours: 49},
		},
	})
	require.True(t, ok)

	body := string(gotMsg)
	require.Contains(t, body, "Subject: [HelpDeskPro] Reminder: 2 Unanswered Tickets")
	require.Contains(t, body, "#11111111")
	require.Contains(t, body, "(high priority, 25h old)")
	require.Contains(t, body, "(low priority, 49h old)")
	require.Equal(t, 2, strings.Count(body, "<li>"))
}
