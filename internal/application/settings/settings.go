package settings

import (
	"context"
	"strconv"

	"github.com/zeroxtech/zeno/internal/domain/repository"
	"github.com/zeroxtech/zeno/internal/infrastructure/config"
)

// Well-known settings keys.
const (
	KeyLLMProvider     = "llm_provider"
	KeyLLMModel        = "llm_model"
	KeySystemPrompt    = "system_prompt"
	KeyMaxHistory      = "max_history"
	KeyHandoffKeywords = "handoff_keywords"
	KeyHandoffEmail    = "handoff_email"
	KeyClaudeAPIKey    = "claude_api_key"
	KeyOpenAIAPIKey    = "openai_api_key"
	KeyGeminiAPIKey    = "gemini_api_key"
	KeySMTPHost        = "smtp_host"
	KeySMTPPort        = "smtp_port"
	KeySMTPUser        = "smtp_user"
	KeySMTPPass        = "smtp_pass"
	KeySMTPFrom        = "smtp_from"
)

const defaultSystemPrompt = "Sei l'assistente AI di zerox.technology, un'azienda tecnologica. Il tuo nome è Zeno.\n\n" +
	"REGOLE FONDAMENTALI:\n" +
	"- Rispondi SEMPRE in italiano, in modo professionale ma amichevole\n" +
	"- Sii conciso e diretto nelle risposte (max 2-3 paragrafi)\n" +
	"- Se non sai qualcosa, dillo onestamente — non inventare informazioni\n" +
	"- Non rivelare mai su quale modello sei basato\n" +
	"- Presentati come l'assistente AI di zerox.technology\n\n" +
	"COMPORTAMENTO:\n" +
	"- Saluta brevemente quando l'utente inizia la conversazione\n" +
	"- Rispondi alle domande in modo chiaro e utile\n" +
	"- Se ricevi messaggi vocali o immagini, rispondi in modo pertinente al contenuto\n" +
	"- Mantieni un tono professionale ma accessibile"

// Defaults are seeded into the store at first initialization and never
// overwrite values already present.
func Defaults() map[string]string {
	return map[string]string{
		KeyLLMProvider:     "claude",
		KeyLLMModel:        "claude-sonnet-4-5-20250514",
		KeySystemPrompt:    defaultSystemPrompt,
		KeyMaxHistory:      "50",
		KeyHandoffKeywords: "",
		KeyHandoffEmail:    "",
	}
}

// SMTP is the resolved mail transport configuration.
type SMTP struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Service resolves settings with the documented precedence:
// stored value → environment fallback → hardcoded default.
type Service struct {
	repo      repository.SettingsRepository
	providers config.ProvidersConfig
	smtp      config.SMTPConfig
}

func NewService(repo repository.SettingsRepository, providers config.ProvidersConfig, smtp config.SMTPConfig) *Service {
	return &Service{repo: repo, providers: providers, smtp: smtp}
}

// Seed inserts default entries that are not already present.
func (s *Service) Seed(ctx context.Context) error {
	return s.repo.SeedDefaults(ctx, Defaults())
}

// Get returns the stored value, or "" when unset.
func (s *Service) Get(ctx context.Context, key string) string {
	value, err := s.repo.Get(ctx, key)
	if err != nil {
		return ""
	}
	return value
}

// GetOr returns the stored value, or fallback when unset.
func (s *Service) GetOr(ctx context.Context, key, fallback string) string {
	if value := s.Get(ctx, key); value != "" {
		return value
	}
	return fallback
}

// GetInt parses the stored value as an integer, or returns fallback.
func (s *Service) GetInt(ctx context.Context, key string, fallback int) int {
	value := s.Get(ctx, key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, key, value)
}

func (s *Service) All(ctx context.Context) (map[string]string, error) {
	return s.repo.All(ctx)
}

// APIKey resolves the credential for a provider: stored value first, then
// the environment fallback from server config. Empty means not configured.
func (s *Service) APIKey(ctx context.Context, provider string) string {
	switch provider {
	case "claude":
		return s.GetOr(ctx, KeyClaudeAPIKey, s.providers.ClaudeAPIKey)
	case "openai":
		return s.GetOr(ctx, KeyOpenAIAPIKey, s.providers.OpenAIAPIKey)
	case "gemini":
		return s.GetOr(ctx, KeyGeminiAPIKey, s.providers.GeminiAPIKey)
	default:
		return ""
	}
}

// SMTPSettings resolves the mail transport, stored values over env.
func (s *Service) SMTPSettings(ctx context.Context) SMTP {
	return SMTP{
		Host: s.GetOr(ctx, KeySMTPHost, s.smtp.Host),
		Port: s.GetInt(ctx, KeySMTPPort, s.smtp.Port),
		User: s.GetOr(ctx, KeySMTPUser, s.smtp.User),
		Pass: s.GetOr(ctx, KeySMTPPass, s.smtp.Pass),
		From: s.GetOr(ctx, KeySMTPFrom, s.smtp.From),
	}
}
