package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/domain/entity"
)

// EmailNotifier sends the human-handoff notification email. Delivery is
// best effort: the caller never sees SMTP failures.
type EmailNotifier struct {
	settings *settings.Service
	logger   *zap.Logger
}

func NewEmailNotifier(s *settings.Service, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		settings: s,
		logger:   logger.With(zap.String("component", "email-notifier")),
	}
}

// NotifyHandoff emails the recipient with recent conversation context.
func (n *EmailNotifier) NotifyHandoff(ctx context.Context, recipient, phone string, history []entity.Message) error {
	smtp := n.settings.SMTPSettings(ctx)
	if smtp.Host == "" || smtp.User == "" {
		n.logger.Warn("SMTP not configured, skipping handoff email")
		return nil
	}

	var lines []string
	for _, m := range history {
		who := "Utente"
		if m.Role == entity.RoleAssistant {
			who = "Bot"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", who, m.Content))
	}
	summary := strings.Join(lines, "\n")
	if summary == "" {
		summary = "(nessun messaggio precedente)"
	}

	body := fmt.Sprintf(`Un utente ha richiesto di parlare con un operatore umano.

Numero: +%s
Data: %s

--- Ultimi messaggi ---
%s

---
Rispondi direttamente su WhatsApp al numero sopra indicato.
`, phone, time.Now().UTC().Format("02/01/2006 15:04"), summary)

	m := gomail.NewMessage()
	m.SetHeader("From", smtp.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("Richiesta assistenza umana - %s", phone))
	m.SetBody("text/plain", body)

	dialer := gomail.NewDialer(smtp.Host, smtp.Port, smtp.User, smtp.Pass)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send handoff email: %w", err)
	}

	n.logger.Info("Handoff email sent",
		zap.String("phone", phone),
		zap.String("recipient", recipient),
	)
	return nil
}
