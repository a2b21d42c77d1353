package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
)

// Repository manages persistence for offers and the discounted prices
// they project onto products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.Offer) error
	Update(ctx context.Context, offer *models.Offer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	ListAll(ctx context.Context) ([]models.Offer, error)
	ActiveForProduct(ctx context.Context, productID, categoryID uuid.UUID, now time.Time) ([]models.Offer, error)
	ProductsForOffer(ctx context.Context, offer *models.Offer) ([]models.Product, error)
	SetDiscountedPrice(ctx context.Context, productID uuid.UUID, price *decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an offer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *repository) Update(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Save(offer).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Offer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Offer, error) {
	var offers []models.Offer
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// ActiveForProduct returns the listed, in-window offers targeting the
// product directly or through its category.
func (r *repository) ActiveForProduct(ctx context.Context, productID, categoryID uuid.UUID, now time.Time) ([]models.Offer, error) {
	var offers []models.Offer
	if err := r.db.WithContext(ctx).
		Where("listed = ?", true).
		Where("starts_at <= ? AND ends_at > ?", now, now).
		Where("product_id = ? OR category_id = ?", productID, categoryID).
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// ProductsForOffer resolves the products an offer's target covers.
func (r *repository) ProductsForOffer(ctx context.Context, offer *models.Offer) ([]models.Product, error) {
	var products []models.Product
	query := r.db.WithContext(ctx)
	switch {
	case offer.ProductID != nil:
		query = query.Where("id = ?", *offer.ProductID)
	case offer.CategoryID != nil:
		query = query.Where("category_id = ?", *offer.CategoryID)
	default:
		return nil, nil
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) SetDiscountedPrice(ctx context.Context, productID uuid.UUID, price *decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("discounted_price", price)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
