package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lulocustoms/shop/internal/models"
)

var ErrAdminAlreadyExist = errors.New("admin already exist")

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *GormRepo) CreateAdminIfNotExists(ctx context.Context, a *models.AdminUser) error {
	tx := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAdminAlreadyExist
	}
	return nil
}
