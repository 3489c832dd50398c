package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/domain/repository"
)

// handoffContextDepth is how many recent messages go into the
// notification email.
const handoffContextDepth = 10

// HandoffNotifier delivers the human-handoff notification.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, recipient, phone string, history []entity.Message) error
}

// HandoffDetector decides whether a user turn should be routed to a
// human instead of the bot.
type HandoffDetector struct {
	settings *settings.Service
	messages repository.MessageRepository
	notifier HandoffNotifier
	logger   *zap.Logger
}

func NewHandoffDetector(s *settings.Service, messages repository.MessageRepository, notifier HandoffNotifier, logger *zap.Logger) *HandoffDetector {
	return &HandoffDetector{
		settings: s,
		messages: messages,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "handoff")),
	}
}

// Check reports whether the user text triggers a handoff, sending the
// best-effort notification email when it does. Notification failures are
// logged, never propagated: a handoff is triggered regardless.
func (d *HandoffDetector) Check(ctx context.Context, phone, userText string) bool {
	keywords := d.settings.Get(ctx, settings.KeyHandoffKeywords)
	if !MatchesKeywords(keywords, userText) {
		return false
	}

	recipient := d.settings.Get(ctx, settings.KeyHandoffEmail)
	if recipient == "" {
		d.logger.Warn("Handoff triggered but no email configured", zap.String("phone", phone))
		return true
	}

	history, err := d.messages.History(ctx, phone, handoffContextDepth)
	if err != nil {
		d.logger.Error("Failed to load handoff context", zap.String("phone", phone), zap.Error(err))
		history = nil
	}

	if err := d.notifier.NotifyHandoff(ctx, recipient, phone, history); err != nil {
		d.logger.Error("Failed to send handoff email",
			zap.String("phone", phone),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
	}

	return true
}

// MatchesKeywords reports whether text contains any configured keyword.
// Keywords are a comma-separated list; matching is case-insensitive
// substring containment with per-keyword whitespace trimming. An empty
// or whitespace-only list disables the feature.
func MatchesKeywords(keywords, text string) bool {
	if strings.TrimSpace(keywords) == "" {
		return false
	}

	textLower := strings.ToLower(text)
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(textLower, kw) {
			return true
		}
	}
	return false
}
