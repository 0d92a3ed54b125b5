package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/lulocustoms/shop/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) scoped(ctx context.Context, activeOnly bool) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	return q
}

func (r *GormRepo) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	items := make([]models.Product, 0)
	if err := r.scoped(ctx, activeOnly).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchProducts matches q case-insensitively against name and description.
func (r *GormRepo) SearchProducts(ctx context.Context, q string, activeOnly bool) ([]models.Product, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	items := make([]models.Product, 0)
	err := r.scoped(ctx, activeOnly).
		Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", pattern, pattern).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetProductsByIDs loads the given products keeping the order of ids. Missing ids are skipped.
func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uint, activeOnly bool) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var found []models.Product
	if err := r.scoped(ctx, activeOnly).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	items := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			items = append(items, p)
			delete(byID, id)
		}
	}
	return items, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
