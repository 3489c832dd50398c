package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zeroxtech/zeno/internal/application/pipeline"
	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/domain/repository"
	"github.com/zeroxtech/zeno/internal/domain/service"
	"github.com/zeroxtech/zeno/internal/infrastructure/config"
	"github.com/zeroxtech/zeno/internal/infrastructure/evolution"
	"github.com/zeroxtech/zeno/internal/infrastructure/llm"
	"github.com/zeroxtech/zeno/internal/infrastructure/logger"
	"github.com/zeroxtech/zeno/internal/infrastructure/media"
	"github.com/zeroxtech/zeno/internal/infrastructure/notify"
	"github.com/zeroxtech/zeno/internal/infrastructure/persistence"
	httpiface "github.com/zeroxtech/zeno/internal/interfaces/http"
	"github.com/zeroxtech/zeno/internal/interfaces/http/handlers"

	// Provider registration.
	_ "github.com/zeroxtech/zeno/internal/infrastructure/llm/anthropic"
	_ "github.com/zeroxtech/zeno/internal/infrastructure/llm/gemini"
	_ "github.com/zeroxtech/zeno/internal/infrastructure/llm/openai"
)

const (
	appName    = "zeno"
	appVersion = "1.0.0"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Zeno",
		zap.String("name", appName),
		zap.String("version", appVersion),
	)

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatal("Refusing to start with insecure configuration", zap.Error(err))
	}

	db, err := persistence.NewDBConnection(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	log.Info("Database initialized", zap.String("type", cfg.Database.Type))

	messageRepo := persistence.NewGormMessageRepository(db)
	settingsRepo := persistence.NewGormSettingsRepository(db)
	adminRepo := persistence.NewGormAdminRepository(db)

	ctx := context.Background()

	settingsSvc := settings.NewService(settingsRepo, cfg.Providers, cfg.SMTP)
	if err := settingsSvc.Seed(ctx); err != nil {
		log.Fatal("Failed to seed default settings", zap.Error(err))
	}

	if err := seedAdminUser(ctx, adminRepo, cfg.Admin, log); err != nil {
		log.Fatal("Failed to seed admin user", zap.Error(err))
	}

	gateway := evolution.NewClient(cfg.Evolution, log)
	dispatcher := llm.NewDispatcher(log)
	transcriber := media.NewTranscriber(settingsSvc, log)
	describer := media.NewDescriber(dispatcher, settingsSvc, log)
	notifier := notify.NewEmailNotifier(settingsSvc, log)
	handoff := service.NewHandoffDetector(settingsSvc, messageRepo, notifier, log)

	p := pipeline.New(
		messageRepo,
		settingsSvc,
		gateway,
		transcriber,
		describer,
		dispatcher,
		handoff,
		cfg.MaxInputLength,
		log,
	)

	webhookHandler := handlers.NewWebhookHandler(p, log)
	adminHandler := handlers.NewAdminHandler(messageRepo, settingsSvc, gateway,
		func() error { return persistence.Ping(db) }, log)
	authHandler := handlers.NewAuthHandler(adminRepo, cfg.JWTSecret, log)

	server := httpiface.NewServer(httpiface.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		Mode:          cfg.Server.Mode,
		WebhookAPIKey: cfg.Evolution.APIKey,
	}, webhookHandler, adminHandler, authHandler, log)

	if err := server.Start(ctx); err != nil {
		log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	log.Info("Webhook endpoint ready", zap.String("path", "/webhook"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	if err := persistence.Close(db); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Application stopped")
}

// seedAdminUser creates the first admin credential when the table is
// empty. Existing users are never touched.
func seedAdminUser(ctx context.Context, admins repository.AdminRepository, cfg config.AdminConfig, log *zap.Logger) error {
	count, err := admins.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if cfg.Password == "" {
		log.Warn("No admin user exists and admin.password is not set; admin panel login disabled")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &entity.AdminUser{Username: cfg.Username, PasswordHash: string(hash)}
	if err := admins.Create(ctx, user); err != nil {
		return err
	}

	log.Info("Seeded initial admin user", zap.String("username", cfg.Username))
	return nil
}
