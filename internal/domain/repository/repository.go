package repository

import (
	"context"

	"github.com/zeroxtech/zeno/internal/domain/entity"
)

// MessageRepository is the append-only conversation log.
type MessageRepository interface {
	// Save appends a message. The store assigns ID and Timestamp;
	// empty media fields are persisted as NULL.
	Save(ctx context.Context, message *entity.Message) error

	// History returns the most recent limit messages for a phone,
	// oldest first.
	History(ctx context.Context, phone string, limit int) ([]entity.Message, error)

	// Conversation returns every message for a phone, oldest first.
	Conversation(ctx context.Context, phone string) ([]entity.Message, error)

	// Search performs a case-insensitive substring match over all
	// content, newest first.
	Search(ctx context.Context, query string, page, limit int) (*entity.MessagePage, error)

	// ListConversations pages conversation summaries sorted by most
	// recent activity.
	ListConversations(ctx context.Context, page, limit int) (*entity.ConversationPage, error)

	// Stats aggregates counts over the whole log.
	Stats(ctx context.Context) (*entity.Stats, error)
}

// SettingsRepository is the persisted key-value config store.
type SettingsRepository interface {
	// Get returns the stored value, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set upserts a value.
	Set(ctx context.Context, key, value string) error

	// All returns every stored entry.
	All(ctx context.Context) (map[string]string, error)

	// SeedDefaults inserts entries that are not already present.
	// Existing values are never overwritten.
	SeedDefaults(ctx context.Context, defaults map[string]string) error
}

// AdminRepository stores admin panel credentials.
type AdminRepository interface {
	FindByUsername(ctx context.Context, username string) (*entity.AdminUser, error)
	Create(ctx context.Context, user *entity.AdminUser) error
	Count(ctx context.Context) (int64, error)
}
