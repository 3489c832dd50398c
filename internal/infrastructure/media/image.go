package media

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/infrastructure/llm"
	apperrors "github.com/zeroxtech/zeno/pkg/errors"
)

// Describer produces a short Italian caption for an inbound image,
// routed through the configured LLM provider's vision call. Failures are
// DescriptionError, which the pipeline treats as recoverable.
type Describer struct {
	dispatcher *llm.Dispatcher
	settings   *settings.Service
	logger     *zap.Logger
}

func NewDescriber(dispatcher *llm.Dispatcher, s *settings.Service, logger *zap.Logger) *Describer {
	return &Describer{
		dispatcher: dispatcher,
		settings:   s,
		logger:     logger.With(zap.String("component", "describer")),
	}
}

// Describe returns a one-to-two sentence description of the image.
// Unknown MIME types are coerced to image/jpeg before the vendor call.
func (d *Describer) Describe(ctx context.Context, image []byte, mimeType string) (string, error) {
	provider := d.settings.GetOr(ctx, settings.KeyLLMProvider, "claude")
	model := d.settings.GetOr(ctx, settings.KeyLLMModel, "claude-sonnet-4-5-20250514")

	apiKey := d.settings.APIKey(ctx, provider)
	if apiKey == "" {
		return "", apperrors.NewDescriptionError(
			fmt.Errorf("no API key configured for provider %s", provider))
	}

	description, err := d.dispatcher.Describe(ctx, provider, apiKey, model, image, coerceMIMEType(mimeType))
	if err != nil {
		d.logger.Warn("Image description failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return "", apperrors.NewDescriptionError(err)
	}
	return description, nil
}

func coerceMIMEType(mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		return mimeType
	}
	return "image/jpeg"
}
