package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/infrastructure/config"
	"github.com/zeroxtech/zeno/internal/infrastructure/persistence"
)

func TestNotifyHandoffSkipsWithoutSMTP(t *testing.T) {
	svc := settings.NewService(
		persistence.NewMemorySettingsRepository(),
		config.ProvidersConfig{},
		config.SMTPConfig{},
	)
	n := NewEmailNotifier(svc, zap.NewNop())

	// No SMTP host or user configured: delivery is skipped, not failed.
	if err := n.NotifyHandoff(context.Background(), "support@example.com", "393331234567", nil); err != nil {
		t.Fatalf("expected nil error when SMTP is unconfigured, got %v", err)
	}
}
