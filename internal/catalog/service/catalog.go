package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lulocustoms/shop/internal/catalog/repo"
	"github.com/lulocustoms/shop/internal/catalog/storage"
	"github.com/lulocustoms/shop/internal/catalog/transport"
	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/pkg/apperr"
	"github.com/lulocustoms/shop/pkg/events"
	"github.com/lulocustoms/shop/pkg/logging"
)

var errImageUpload = errors.New("image upload")

type SearchIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, activeOnly bool) ([]uint, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Images storage.ImageStore
	// Index is optional; without it search runs against the database.
	Index  SearchIndex
	Events events.Publisher
	Now    func() time.Time
}

func (s *CatalogService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func validateInput(in *transport.ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Name == "":
		return apperr.Validation("Product name is required")
	case !in.Price.IsPositive():
		return apperr.Validation("Price must be greater than 0")
	case in.Stock < 0:
		return apperr.Validation("Stock cannot be negative")
	}
	return nil
}

func (s *CatalogService) List(ctx context.Context, query string, includeInactive bool) ([]models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.list")
	activeOnly := !includeInactive

	query = strings.TrimSpace(query)
	if query == "" {
		return s.Repo.ListProducts(ctx, activeOnly)
	}

	if s.Index != nil {
		ids, err := s.Index.Search(ctx, query, activeOnly)
		if err == nil {
			return s.Repo.GetProductsByIDs(ctx, ids, activeOnly)
		}
		l.Warn("search_index_failed", "reason", "falling back to database", "error", err)
	}
	return s.Repo.SearchProducts(ctx, query, activeOnly)
}

func (s *CatalogService) Get(ctx context.Context, id uint, includeInactive bool) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	if !p.Active && !includeInactive {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

// Create stores the optional image first and removes it again if the row cannot be written.
func (s *CatalogService) Create(ctx context.Context, in transport.ProductInput, image io.Reader) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create")

	if err := validateInput(&in); err != nil {
		return nil, err
	}

	var imageURL *string
	if image != nil {
		url, err := s.storeImage(ctx, image)
		if err != nil {
			return nil, err
		}
		imageURL = &url
	}

	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    imageURL,
		Stock:       in.Stock,
		Active:      in.Active,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		if imageURL != nil {
			if rmErr := s.Images.Remove(ctx, *imageURL); rmErr != nil {
				l.Warn("orphan_image", "url", *imageURL, "error", rmErr)
			}
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	l.Info("product_created", "product_id", p.ID)
	s.indexProduct(ctx, p)
	s.publish(ctx, "product_created", p)
	return p, nil
}

func (s *CatalogService) storeImage(ctx context.Context, r io.Reader) (string, error) {
	img, err := storage.ReadImage(r)
	switch {
	case errors.Is(err, storage.ErrInvalidType):
		return "", apperr.Validation("Invalid image type. Allowed: JPG, PNG, GIF, WEBP")
	case errors.Is(err, storage.ErrTooLarge):
		return "", apperr.Validation("Image too large. Max 5MB")
	case err != nil:
		return "", apperr.New(errImageUpload, "Image upload failed")
	}

	url, err := s.Images.Put(ctx, img.Name, img.ContentType, img.Data)
	if err != nil {
		logging.FromContext(ctx).Error("image_store_failed", "name", img.Name, "error", err)
		return "", apperr.New(errImageUpload, "Image upload failed")
	}
	return url, nil
}

func (s *CatalogService) Update(ctx context.Context, id uint, in transport.ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update", "product_id", id)

	if id == 0 {
		return nil, apperr.Validation("Product ID is required")
	}
	p, err := s.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.Active = in.Active
	if err := s.Repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}

	l.Info("product_updated")
	s.indexProduct(ctx, p)
	s.publish(ctx, "product_updated", p)
	return p, nil
}

// Delete removes the product row. A stored image that cannot be removed is logged and left behind.
func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "catalog.delete", "product_id", id)

	if id == 0 {
		return apperr.Validation("Product ID is required")
	}
	p, err := s.Get(ctx, id, true)
	if err != nil {
		return err
	}

	if p.ImageURL != nil && *p.ImageURL != "" && s.Images != nil {
		if err := s.Images.Remove(ctx, *p.ImageURL); err != nil {
			l.Warn("image_remove_failed", "url", *p.ImageURL, "error", err)
		}
	}

	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Product not found")
		}
		return fmt.Errorf("delete product %d: %w", id, err)
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			l.Warn("search_index_delete_failed", "error", err)
		}
	}
	l.Info("product_deleted")
	s.publish(ctx, "product_deleted", p)
	return nil
}

func (s *CatalogService) indexProduct(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) publish(ctx context.Context, typ string, p *models.Product) {
	if s.Events == nil {
		return
	}
	ev := events.ProductEvent{Type: typ, ProductID: p.ID, Name: p.Name, At: s.now()}
	if err := s.Events.PublishEvent(ctx, events.TopicProducts, fmt.Sprint(p.ID), ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", typ, "product_id", p.ID, "error", err)
	}
}
