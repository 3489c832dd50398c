package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/domain/repository"
	domainErrors "github.com/zeroxtech/zeno/pkg/errors"
)

// MemoryMessageRepository is an in-memory message log used by tests and
// environments without a database. Semantics match the GORM repository.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []entity.Message
	nextID   int64
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{nextID: 1}
}

var _ repository.MessageRepository = (*MemoryMessageRepository)(nil)

func (r *MemoryMessageRepository) Save(_ context.Context, message *entity.Message) error {
	if !message.Role.Valid() {
		return domainErrors.NewInvalidInputError("role must be user or assistant")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = r.nextID
	r.nextID++
	message.Timestamp = time.Now().UTC()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *MemoryMessageRepository) History(_ context.Context, phone string, limit int) ([]entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []entity.Message
	for _, m := range r.messages {
		if m.Phone == phone {
			all = append(all, m)
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *MemoryMessageRepository) Conversation(_ context.Context, phone string) ([]entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []entity.Message
	for _, m := range r.messages {
		if m.Phone == phone {
			all = append(all, m)
		}
	}
	return all, nil
}

func (r *MemoryMessageRepository) Search(_ context.Context, query string, page, limit int) (*entity.MessagePage, error) {
	page, limit = normalizePage(page, limit)
	needle := strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []entity.Message
	for i := len(r.messages) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(r.messages[i].Content), needle) {
			matches = append(matches, r.messages[i])
		}
	}

	total := int64(len(matches))
	start := (page - 1) * limit
	if start > len(matches) {
		start = len(matches)
	}
	end := start + limit
	if end > len(matches) {
		end = len(matches)
	}

	return &entity.MessagePage{
		Data:       append([]entity.Message{}, matches[start:end]...),
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

func (r *MemoryMessageRepository) ListConversations(_ context.Context, page, limit int) (*entity.ConversationPage, error) {
	page, limit = normalizePage(page, limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	byPhone := make(map[string]*entity.ConversationSummary)
	for _, m := range r.messages {
		s, ok := byPhone[m.Phone]
		if !ok {
			s = &entity.ConversationSummary{Phone: m.Phone}
			byPhone[m.Phone] = s
		}
		s.MessageCount++
		s.LastMessage = m.Content
		s.LastTimestamp = m.Timestamp
	}

	summaries := make([]entity.ConversationSummary, 0, len(byPhone))
	for _, s := range byPhone {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastTimestamp.After(summaries[j].LastTimestamp)
	})

	total := int64(len(summaries))
	start := (page - 1) * limit
	if start > len(summaries) {
		start = len(summaries)
	}
	end := start + limit
	if end > len(summaries) {
		end = len(summaries)
	}

	return &entity.ConversationPage{
		Data:       append([]entity.ConversationSummary{}, summaries[start:end]...),
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

func (r *MemoryMessageRepository) Stats(_ context.Context) (*entity.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &entity.Stats{}
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	phones := make(map[string]bool)
	activePhones := make(map[string]bool)

	for _, m := range r.messages {
		stats.TotalMessages++
		phones[m.Phone] = true
		if !m.Timestamp.Before(startOfDay) {
			stats.MessagesToday++
			activePhones[m.Phone] = true
		}
	}
	stats.TotalConversations = int64(len(phones))
	stats.ActiveToday = int64(len(activePhones))
	return stats, nil
}
