package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lulocustoms/shop/internal/models"
)

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      bool
}

// Flag accepts true/false, 1/0 and their string forms.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid flag %q", s)
	}
	*f = Flag(v)
	return nil
}

type UpdateProductRequest struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      *Flag           `json:"active"`
}

func (r UpdateProductRequest) Input() ProductInput {
	active := true
	if r.Active != nil {
		active = bool(*r.Active)
	}
	return ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Active:      active,
	}
}

type ProductDTO struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	ImageURL    *string     `json:"image_url"`
	Stock       int         `json:"stock"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func FormatProduct(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       json.Number(p.Price.StringFixed(2)),
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FormatProducts(ps []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(ps))
	for i := range ps {
		out = append(out, FormatProduct(&ps[i]))
	}
	return out
}
