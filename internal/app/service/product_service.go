package service

import (
	"errors"
	"strings"

	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/repository"
	"github.com/ikkim/sneakers-backend/pkg/logger"
	"github.com/ikkim/sneakers-backend/pkg/util"
	"gorm.io/gorm"
)

const (
	defaultProductPageSize = 20
	maxProductPageSize     = 100
)

type ProductListOptions struct {
	IncludeUnavailable bool
	Limit              int
	Offset             int
}

type ProductService interface {
	ListProducts(opts ProductListOptions) ([]model.Product, error)
	GetProductByID(id uint) (*model.Product, error)
	CreateProduct(product *model.Product) error
	ImportProducts(products []model.Product) (int, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) ListProducts(opts ProductListOptions) ([]model.Product, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultProductPageSize
	}
	if limit > maxProductPageSize {
		limit = maxProductPageSize
	}

	products, err := s.productRepo.FindAll(repository.ProductFilter{
		AvailableOnly: !opts.IncludeUnavailable,
		Limit:         limit,
		Offset:        opts.Offset,
	})
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}
	return products, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(product *model.Product) error {
	if err := prepareProduct(product); err != nil {
		return err
	}
	if err := s.productRepo.Create(product); err != nil {
		return err
	}
	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return nil
}

// ImportProducts validates every row before writing any of them.
func (s *productService) ImportProducts(products []model.Product) (int, error) {
	for i := range products {
		if err := prepareProduct(&products[i]); err != nil {
			return 0, err
		}
	}
	if err := s.productRepo.BulkCreate(products); err != nil {
		return 0, err
	}
	logger.Info("Products imported", map[string]interface{}{
		"count": len(products),
	})
	return len(products), nil
}

func prepareProduct(product *model.Product) error {
	product.Title = strings.TrimSpace(product.Title)
	if product.Title == "" {
		return NewValidationError("title", "is required")
	}
	if product.Price.IsNegative() {
		return NewValidationError("price", "must not be negative")
	}
	if product.Slug == "" {
		product.Slug = util.UniqueSlug(product.Title)
	}
	return nil
}
