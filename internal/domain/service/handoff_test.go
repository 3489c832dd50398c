package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/infrastructure/config"
	"github.com/zeroxtech/zeno/internal/infrastructure/persistence"
)

func TestMatchesKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords string
		text     string
		want     bool
	}{
		{"empty list disables", "", "voglio un operatore", false},
		{"whitespace-only list disables", "  ,  , ", "voglio un operatore", false},
		{"simple match", "operatore", "voglio un operatore", true},
		{"case-insensitive", "operatore", "Voglio un OPERATORE", true},
		{"keyword trimmed", " operatore , umano", "parlo con un umano", true},
		{"substring containment", "aiuto", "aiutooo", true},
		{"no match", "operatore,umano", "che ore sono?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesKeywords(tt.keywords, tt.text); got != tt.want {
				t.Fatalf("MatchesKeywords(%q, %q) = %v, want %v", tt.keywords, tt.text, got, tt.want)
			}
		})
	}
}

type recordingNotifier struct {
	calls     int
	recipient string
	phone     string
	history   []entity.Message
	err       error
}

func (n *recordingNotifier) NotifyHandoff(_ context.Context, recipient, phone string, history []entity.Message) error {
	n.calls++
	n.recipient = recipient
	n.phone = phone
	n.history = history
	return n.err
}

func newTestDetector(t *testing.T, stored map[string]string) (*HandoffDetector, *persistence.MemoryMessageRepository, *recordingNotifier) {
	t.Helper()

	settingsRepo := persistence.NewMemorySettingsRepository()
	for k, v := range stored {
		if err := settingsRepo.Set(context.Background(), k, v); err != nil {
			t.Fatalf("failed to store setting %s: %v", k, err)
		}
	}

	svc := settings.NewService(settingsRepo, config.ProvidersConfig{}, config.SMTPConfig{})
	messages := persistence.NewMemoryMessageRepository()
	notifier := &recordingNotifier{}
	detector := NewHandoffDetector(svc, messages, notifier, zap.NewNop())
	return detector, messages, notifier
}

func TestHandoffCheckNotifies(t *testing.T) {
	detector, messages, notifier := newTestDetector(t, map[string]string{
		settings.KeyHandoffKeywords: "operatore",
		settings.KeyHandoffEmail:    "support@example.com",
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		msg := &entity.Message{Phone: "393331234567", Role: entity.RoleUser, Content: "ciao"}
		if err := messages.Save(ctx, msg); err != nil {
			t.Fatalf("failed to save message: %v", err)
		}
	}

	if !detector.Check(ctx, "393331234567", "voglio un operatore") {
		t.Fatal("expected handoff to trigger")
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier calls = %d, want 1", notifier.calls)
	}
	if notifier.recipient != "support@example.com" {
		t.Fatalf("recipient = %q", notifier.recipient)
	}
	if len(notifier.history) != 3 {
		t.Fatalf("history length = %d, want 3", len(notifier.history))
	}
}

func TestHandoffCheckNoKeywordMatch(t *testing.T) {
	detector, _, notifier := newTestDetector(t, map[string]string{
		settings.KeyHandoffKeywords: "operatore",
		settings.KeyHandoffEmail:    "support@example.com",
	})

	if detector.Check(context.Background(), "393331234567", "che ore sono?") {
		t.Fatal("expected no handoff")
	}
	if notifier.calls != 0 {
		t.Fatalf("notifier calls = %d, want 0", notifier.calls)
	}
}

func TestHandoffCheckWithoutEmailStillTriggers(t *testing.T) {
	detector, _, notifier := newTestDetector(t, map[string]string{
		settings.KeyHandoffKeywords: "operatore",
	})

	if !detector.Check(context.Background(), "393331234567", "operatore per favore") {
		t.Fatal("expected handoff to trigger without a recipient")
	}
	if notifier.calls != 0 {
		t.Fatalf("notifier calls = %d, want 0", notifier.calls)
	}
}

func TestHandoffCheckNotifierFailureStillTriggers(t *testing.T) {
	detector, _, notifier := newTestDetector(t, map[string]string{
		settings.KeyHandoffKeywords: "operatore",
		settings.KeyHandoffEmail:    "support@example.com",
	})
	notifier.err = errTest

	if !detector.Check(context.Background(), "393331234567", "operatore") {
		t.Fatal("expected handoff to trigger despite notification failure")
	}
}

var errTest = errSentinel("boom")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
