package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zeroxtech/zeno/internal/domain/repository"
	"github.com/zeroxtech/zeno/internal/infrastructure/persistence/models"
	domainErrors "github.com/zeroxtech/zeno/pkg/errors"
)

// GormSettingsRepository is the GORM-backed key-value config store.
type GormSettingsRepository struct {
	db *gorm.DB
}

func NewGormSettingsRepository(db *gorm.DB) repository.SettingsRepository {
	return &GormSettingsRepository{db: db}
}

func (r *GormSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var row models.ConfigModel
	err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", domainErrors.NewInternalError("failed to read config: " + err.Error())
	}
	return row.Value, nil
}

func (r *GormSettingsRepository) Set(ctx context.Context, key, value string) error {
	row := models.ConfigModel{Key: key, Value: value}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&row).Error
	if err != nil {
		return domainErrors.NewInternalError("failed to write config: " + err.Error())
	}
	return nil
}

func (r *GormSettingsRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []models.ConfigModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, domainErrors.NewInternalError("failed to read config: " + err.Error())
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *GormSettingsRepository) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	for key, value := range defaults {
		row := models.ConfigModel{Key: key, Value: value}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error
		if err != nil {
			return domainErrors.NewInternalError("failed to seed config: " + err.Error())
		}
	}
	return nil
}
