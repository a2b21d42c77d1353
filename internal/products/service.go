package products

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
	"github.com/arjunvnair/modakart-backend/pkg/pagination"
)

// Service manages the product catalog.
type Service interface {
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Product, string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddVariant(ctx context.Context, input AddVariantInput) (*models.ProductVariant, error)
	RemoveVariant(ctx context.Context, variantID uuid.UUID) error
	VariantBelongsToProduct(ctx context.Context, variantID, productID uuid.UUID) (bool, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateBrand(ctx context.Context, name string) (*models.Brand, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
}

// CreateProductInput carries the admin-facing product definition.
type CreateProductInput struct {
	Name            string
	Description     string
	Price           decimal.Decimal
	DiscountedPrice *decimal.Decimal
	ThumbnailImage  string
	CategoryID      uuid.UUID
	BrandID         uuid.UUID
	Listed          bool
}

// UpdateProductInput mutates only the fields a non-nil pointer names.
type UpdateProductInput struct {
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	DiscountedPrice *decimal.Decimal
	ThumbnailImage  *string
	Listed          *bool
}

// AddVariantInput creates one purchasable variant under a product.
type AddVariantInput struct {
	ProductID uuid.UUID
	Color     string
	Stock     int
	Images    []string
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Product, string, error) {
	rows, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	page, next := pagination.Page(rows, params.Limit, func(p models.Product) (time.Time, uuid.UUID) {
		return p.CreatedAt, p.ID
	})
	return page, next, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.DiscountedPrice != nil && input.DiscountedPrice.GreaterThanOrEqual(input.Price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discounted price must be below the list price")
	}
	if input.CategoryID == uuid.Nil || input.BrandID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id and brand id are required")
	}

	product := &models.Product{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Price:           input.Price,
		DiscountedPrice: input.DiscountedPrice,
		ThumbnailImage:  input.ThumbnailImage,
		CategoryID:      input.CategoryID,
		BrandID:         input.BrandID,
		Listed:          input.Listed,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.Sign() <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = *input.Price
	}
	if input.DiscountedPrice != nil {
		product.DiscountedPrice = input.DiscountedPrice
	}
	if input.ThumbnailImage != nil {
		product.ThumbnailImage = *input.ThumbnailImage
	}
	if input.Listed != nil {
		product.Listed = *input.Listed
	}
	if product.DiscountedPrice != nil && product.DiscountedPrice.GreaterThanOrEqual(product.Price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discounted price must be below the list price")
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func (s *service) AddVariant(ctx context.Context, input AddVariantInput) (*models.ProductVariant, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if strings.TrimSpace(input.Color) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant color is required")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if _, err := s.Get(ctx, input.ProductID); err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		Color:     strings.TrimSpace(input.Color),
		Stock:     input.Stock,
		Images:    input.Images,
	}
	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create variant")
	}
	return variant, nil
}

func (s *service) RemoveVariant(ctx context.Context, variantID uuid.UUID) error {
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if err := s.repo.DeleteVariant(ctx, variantID); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete variant")
	}
	return nil
}

func (s *service) VariantBelongsToProduct(ctx context.Context, variantID, productID uuid.UUID) (bool, error) {
	return s.repo.VariantBelongsToProduct(ctx, variantID, productID)
}

func (s *service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category := &models.Category{ID: uuid.New(), Name: name, Listed: true}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return category, nil
}

func (s *service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return categories, nil
}

func (s *service) CreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand name is required")
	}
	brand := &models.Brand{ID: uuid.New(), Name: name, Listed: true}
	if err := s.repo.CreateBrand(ctx, brand); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "brand already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create brand")
	}
	return brand, nil
}

func (s *service) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list brands")
	}
	return brands, nil
}
