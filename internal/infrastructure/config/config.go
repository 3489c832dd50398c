package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the server-level application configuration. Runtime tunables
// (model, prompt, handoff keywords) live in the settings store instead.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	JWTSecret string          `mapstructure:"jwt_secret"`
	Evolution EvolutionConfig `mapstructure:"evolution"`
	Providers ProvidersConfig `mapstructure:"providers"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Admin     AdminConfig     `mapstructure:"admin"`

	// MaxInputLength bounds inbound user text in runes; 0 disables.
	MaxInputLength int `mapstructure:"max_input_length"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // local, production
}

type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EvolutionConfig points at the WhatsApp gateway.
type EvolutionConfig struct {
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Instance string `mapstructure:"instance"`
}

// ProvidersConfig holds environment fallbacks for credentials.
// Stored settings take precedence over these.
type ProvidersConfig struct {
	ClaudeAPIKey string `mapstructure:"claude_api_key"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	From string `mapstructure:"from"`
}

// AdminConfig seeds the first admin user when the table is empty.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Load reads config.yaml (optional) and ZENO_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ZENO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "local")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/zeno.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("jwt_secret", "")

	v.SetDefault("evolution.url", "http://localhost:8080")
	v.SetDefault("evolution.api_key", "")
	v.SetDefault("evolution.instance", "zeno")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "noreply@zerox.technology")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")

	v.SetDefault("max_input_length", 4000)
}

// insecureSecrets are placeholder values refused for jwt_secret.
var insecureSecrets = map[string]bool{
	"":          true,
	"change-me": true,
	"secret":    true,
	"password":  true,
	"default":   true,
}

// Validate enforces security-critical settings before startup.
// It returns all problems at once, and a list of non-fatal warnings.
func (c *Config) Validate() (warnings []string, err error) {
	var errs []string

	if insecureSecrets[c.JWTSecret] {
		errs = append(errs, "jwt_secret is not set or uses an insecure default; set a strong, unique secret")
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, "jwt_secret should be at least 32 characters long")
	}

	if c.Evolution.APIKey == "" {
		warnings = append(warnings, "evolution.api_key is not set; webhook requests will not be authenticated")
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("insecure configuration: %s", strings.Join(errs, "; "))
	}
	return warnings, nil
}
