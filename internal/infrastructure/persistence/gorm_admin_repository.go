package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/zeroxtech/zeno/internal/domain/entity"
	"github.com/zeroxtech/zeno/internal/domain/repository"
	"github.com/zeroxtech/zeno/internal/infrastructure/persistence/models"
	domainErrors "github.com/zeroxtech/zeno/pkg/errors"
)

// GormAdminRepository stores admin panel credentials.
type GormAdminRepository struct {
	db *gorm.DB
}

func NewGormAdminRepository(db *gorm.DB) repository.AdminRepository {
	return &GormAdminRepository{db: db}
}

func (r *GormAdminRepository) FindByUsername(ctx context.Context, username string) (*entity.AdminUser, error) {
	var row models.AdminUserModel
	err := r.db.WithContext(ctx).First(&row, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("admin user not found")
		}
		return nil, domainErrors.NewInternalError("failed to find admin user: " + err.Error())
	}

	return &entity.AdminUser{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
	}, nil
}

func (r *GormAdminRepository) Create(ctx context.Context, user *entity.AdminUser) error {
	row := models.AdminUserModel{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domainErrors.NewInternalError("failed to create admin user: " + err.Error())
	}
	user.ID = row.ID
	return nil
}

func (r *GormAdminRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AdminUserModel{}).Count(&count).Error; err != nil {
		return 0, domainErrors.NewInternalError("failed to count admin users: " + err.Error())
	}
	return count, nil
}
