package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/domain/repository"
	"github.com/zeroxtech/zeno/internal/infrastructure/persistence/models"
	domainErrors "github.com/zeroxtech/zeno/pkg/errors"
)

// GormMessageRepository is the GORM-backed conversation log.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, message *entity.Message) error {
	if !message.Role.Valid() {
		return domainErrors.NewInvalidInputError("role must be user or assistant")
	}

	model := toModel(message)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to save message: " + err.Error())
	}

	message.ID = model.ID
	message.Timestamp = model.Timestamp
	return nil
}

func (r *GormMessageRepository) History(ctx context.Context, phone string, limit int) ([]entity.Message, error) {
	var rows []models.MessageModel
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to load history: " + err.Error())
	}

	// Rows come newest-first; callers want chronological order.
	messages := make([]entity.Message, len(rows))
	for i, row := range rows {
		messages[len(rows)-1-i] = toEntity(&row)
	}
	return messages, nil
}

func (r *GormMessageRepository) Conversation(ctx context.Context, phone string) ([]entity.Message, error) {
	var rows []models.MessageModel
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to load conversation: " + err.Error())
	}

	messages := make([]entity.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toEntity(&row))
	}
	return messages, nil
}

func (r *GormMessageRepository) Search(ctx context.Context, query string, page, limit int) (*entity.MessagePage, error) {
	page, limit = normalizePage(page, limit)
	pattern := "%" + query + "%"

	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("lower(content) LIKE lower(?)", pattern).
		Count(&total).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to count search results: " + err.Error())
	}

	var rows []models.MessageModel
	err = r.db.WithContext(ctx).
		Where("lower(content) LIKE lower(?)", pattern).
		Order("id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to search messages: " + err.Error())
	}

	data := make([]entity.Message, 0, len(rows))
	for _, row := range rows {
		data = append(data, toEntity(&row))
	}
	return &entity.MessagePage{
		Data:       data,
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

// conversationRow is the scan target for the grouped listing query.
type conversationRow struct {
	Phone         string
	LastMessage   string
	LastTimestamp time.Time
	MessageCount  int64
}

func (r *GormMessageRepository) ListConversations(ctx context.Context, page, limit int) (*entity.ConversationPage, error) {
	page, limit = normalizePage(page, limit)

	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Distinct("phone").
		Count(&total).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to count conversations: " + err.Error())
	}

	var rows []conversationRow
	err = r.db.WithContext(ctx).
		Table("messages m1").
		Select(`m1.phone,
			(SELECT m2.content FROM messages m2 WHERE m2.phone = m1.phone ORDER BY m2.id DESC LIMIT 1) AS last_message,
			MAX(m1.timestamp) AS last_timestamp,
			COUNT(*) AS message_count`).
		Group("m1.phone").
		Order("last_timestamp DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to list conversations: " + err.Error())
	}

	data := make([]entity.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		data = append(data, entity.ConversationSummary{
			Phone:         row.Phone,
			LastMessage:   row.LastMessage,
			LastTimestamp: row.LastTimestamp,
			MessageCount:  row.MessageCount,
		})
	}
	return &entity.ConversationPage{
		Data:       data,
		Pagination: entity.NewPagination(page, limit, total),
	}, nil
}

func (r *GormMessageRepository) Stats(ctx context.Context) (*entity.Stats, error) {
	stats := &entity.Stats{}
	db := r.db.WithContext(ctx).Model(&models.MessageModel{})

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalMessages).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to count messages: " + err.Error())
	}
	if err := db.Session(&gorm.Session{}).Distinct("phone").Count(&stats.TotalConversations).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to count conversations: " + err.Error())
	}

	// Timestamps are stored in UTC, so "today" is the UTC day.
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	if err := db.Session(&gorm.Session{}).Where("timestamp >= ?", startOfDay).Count(&stats.MessagesToday).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to count today's messages: " + err.Error())
	}
	if err := db.Session(&gorm.Session{}).Where("timestamp >= ?", startOfDay).Distinct("phone").Count(&stats.ActiveToday).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to count today's conversations: " + err.Error())
	}

	return stats, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}

func toModel(m *entity.Message) *models.MessageModel {
	model := &models.MessageModel{
		Phone:   m.Phone,
		Role:    string(m.Role),
		Content: m.Content,
	}
	// Empty media fields are stored as NULL, not empty strings.
	if m.MediaType != "" {
		mt := m.MediaType
		model.MediaType = &mt
	}
	if m.MediaURL != "" {
		mu := m.MediaURL
		model.MediaURL = &mu
	}
	return model
}

func toEntity(model *models.MessageModel) entity.Message {
	m := entity.Message{
		ID:        model.ID,
		Phone:     model.Phone,
		Role:      entity.Role(model.Role),
		Content:   model.Content,
		Timestamp: model.Timestamp,
	}
	if model.MediaType != nil {
		m.MediaType = *model.MediaType
	}
	if model.MediaURL != nil {
		m.MediaURL = *model.MediaURL
	}
	return m
}
