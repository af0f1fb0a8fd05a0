package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/velvetcask/velvetcask/internal/platform/httpx"
)

var validate = validator.New()

// ProductRequest carries product fields for create and update calls.
type ProductRequest struct {
	SKU           string  `json:"sku" validate:"required,max=64"`
	Name          string  `json:"name" validate:"required,max=200"`
	Distillery    string  `json:"distillery" validate:"max=200"`
	Region        string  `json:"region" validate:"max=100"`
	CategoryID    int64   `json:"categoryId" validate:"required,gt=0"`
	ABV           float64 `json:"abv" validate:"gte=0,lte=100"`
	VolumeML      int     `json:"volumeMl" validate:"gt=0"`
	Price         float64 `json:"price" validate:"gte=0"`
	StockQuantity int     `json:"stockQuantity" validate:"gte=0"`
	IsActive      bool    `json:"isActive"`
}

// CategoryRequest carries category fields for create and update calls.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (r ProductRequest) validateFields() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

func (r CategoryRequest) validateFields() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

func (r ProductRequest) toProduct() Product {
	return Product{
		SKU:           r.SKU,
		Name:          r.Name,
		Distillery:    r.Distillery,
		Region:        r.Region,
		CategoryID:    r.CategoryID,
		ABV:           r.ABV,
		VolumeML:      r.VolumeML,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		IsActive:      r.IsActive,
	}
}
