package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdeskpro/helpdesk-service/internal/config"
)

// SMTPMailer renders notification templates and delivers them over
// SMTP. When SMTP is not configured the mailer logs the would-be send
// and reports success, so development setups work without a relay.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer constructs the mailer. Built once at startup and
// injected into everything that notifies.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Configured reports whether a real SMTP relay is set up.
func (m *SMTPMailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.User != "" && m.cfg.Password != ""
}

// Notify implements Notifier.
func (m *SMTPMailer) Notify(_ context.Context, recipientEmail, recipientName string, kind TemplateKind, payload Payload) bool {
	subject, body := renderTemplate(recipientName, kind, payload)

	if !m.Configured() {
		m.logger.Info("email would be sent",
			zap.String("to", recipientEmail),
			zap.String("subject", subject))
		return true
	}

	msg := buildMessage(m.cfg.From, recipientEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	if err := m.send(addr, auth, m.cfg.From, []string{recipientEmail}, msg); err != nil {
		m.logger.Error("failed to send email",
			zap.String("to", recipientEmail),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return false
	}

	m.logger.Info("email sent",
		zap.String("to", recipientEmail),
		zap.String("subject", subject))
	return true
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func renderTemplate(recipientName string, kind TemplateKind, payload Payload) (subject, body string) {
	switch kind {
	case KindTicketCreated:
		subject = fmt.Sprintf("[HelpDeskPro] Ticket Created: %s", payload.TicketTitle)
		body = fmt.Sprintf(
			"<h2>Your Support Ticket Has Been Created</h2>"+
				"<p>Hello %s,</p>"+
				"<p>Your support ticket has been successfully created and our team will review it shortly.</p>"+
				"<p><strong>Ticket ID:</strong> #%s<br><strong>Title:</strong> %s</p>"+
				"<p>We'll notify you when there's an update on your ticket.</p>",
			recipientName, shortID(payload.TicketID), payload.TicketTitle)

	case KindTicketResponse:
		subject = fmt.Sprintf("[HelpDeskPro] New Response: %s", payload.TicketTitle)
		body = fmt.Sprintf(
			"<h2>New Response on Your Ticket</h2>"+
				"<p>Hello %s,</p>"+
				"<p>An agent has responded to your support ticket.</p>"+
				"<p><strong>Ticket:</strong> #%s - %s<br><strong>Response from:</strong> %s</p>"+
				"<blockquote>%s</blockquote>"+
				"<p>Log in to view the full conversation and respond.</p>",
			recipientName, shortID(payload.TicketID), payload.TicketTitle, payload.AgentName, payload.Message)

	case KindTicketClosed:
		subject = fmt.Sprintf("[HelpDeskPro] Ticket Closed: %s", payload.TicketTitle)
		body = fmt.Sprintf(
			"<h2>Your Ticket Has Been Closed</h2>"+
				"<p>Hello %s,</p>"+
				"<p>Your support ticket has been marked as closed.</p>"+
				"<p><strong>Ticket ID:</strong> #%s<br><strong>Title:</strong> %s</p>"+
				"<p>If you need further assistance on this matter, you can create a new ticket.</p>",
			recipientName, shortID(payload.TicketID), payload.TicketTitle)

	case KindUnansweredDigest:
		subject = fmt.Sprintf("[HelpDeskPro] Reminder: %d Unanswered Tickets", len(payload.Tickets))
		var list strings.Builder
		for _, t := range payload.Tickets {
			fmt.Fprintf(&list, "<li><strong>#%s</strong> - %s (%s priority, %dh old)</li>",
				shortID(t.ID), t.Title, t.Priority, t.AgeHours)
		}
		body = fmt.Sprintf(
			"<h2>Unanswered Tickets Reminder</h2>"+
				"<p>Hello %s,</p>"+
				"<p>The following tickets have not received a response and need your attention:</p>"+
				"<ul>%s</ul>"+
				"<p>Please log in to review and respond to these tickets.</p>",
			recipientName, list.String())
	}
	return subject, body
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
