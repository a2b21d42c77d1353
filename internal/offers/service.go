package offers

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// Service manages promotional offers. Every mutation recomputes the
// discounted price of the products the offer covers, so reads stay a
// plain column lookup.
type Service interface {
	Create(ctx context.Context, input CreateOfferInput) (*models.Offer, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateOfferInput) (*models.Offer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Offer, error)
}

// CreateOfferInput carries the admin-facing offer definition. Exactly
// one of ProductID and CategoryID must be set.
type CreateOfferInput struct {
	Title         string
	Description   string
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
	StartsAt      time.Time
	EndsAt        time.Time
	Listed        bool
	ProductID     *uuid.UUID
	CategoryID    *uuid.UUID
}

// UpdateOfferInput mutates only the fields a non-nil pointer names. The
// offer's target is immutable; delete and recreate to move it.
type UpdateOfferInput struct {
	Title         *string
	Description   *string
	DiscountValue *decimal.Decimal
	StartsAt      *time.Time
	EndsAt        *time.Time
	Listed        *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Deps bundles the offer service collaborators.
type Deps struct {
	Repo Repository
	Tx   txRunner
}

type service struct {
	repo   Repository
	runner txRunner
	now    func() time.Time
}

// NewService wires an offer service with the provided collaborators.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: deps.Repo, runner: deps.Tx, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateOfferInput) (*models.Offer, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer title is required")
	}
	if (input.ProductID == nil) == (input.CategoryID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer must target exactly one product or one category")
	}
	if err := validateDiscount(input.DiscountType, input.DiscountValue); err != nil {
		return nil, err
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer end must be after its start")
	}

	offer := &models.Offer{
		ID:            uuid.New(),
		Title:         title,
		Description:   input.Description,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		Listed:        input.Listed,
		ProductID:     input.ProductID,
		CategoryID:    input.CategoryID,
	}
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, offer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create offer")
		}
		return s.reprice(ctx, repo, offer)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateOfferInput) (*models.Offer, error) {
	offer, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer title is required")
		}
		offer.Title = title
	}
	if input.Description != nil {
		offer.Description = *input.Description
	}
	if input.DiscountValue != nil {
		offer.DiscountValue = *input.DiscountValue
	}
	if input.StartsAt != nil {
		offer.StartsAt = *input.StartsAt
	}
	if input.EndsAt != nil {
		offer.EndsAt = *input.EndsAt
	}
	if input.Listed != nil {
		offer.Listed = *input.Listed
	}
	if err := validateDiscount(offer.DiscountType, offer.DiscountValue); err != nil {
		return nil, err
	}
	if !offer.EndsAt.After(offer.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer end must be after its start")
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, offer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update offer")
		}
		return s.reprice(ctx, repo, offer)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	offer, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Delete(ctx, offer.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete offer")
		}
		return s.reprice(ctx, repo, offer)
	})
}

func (s *service) List(ctx context.Context) ([]models.Offer, error) {
	offers, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list offers")
	}
	return offers, nil
}

// reprice recomputes discounted_price for every product the offer
// covers: the cheapest active offer wins, and products with no winning
// offer fall back to their list price.
func (s *service) reprice(ctx context.Context, repo Repository, offer *models.Offer) error {
	products, err := repo.ProductsForOffer(ctx, offer)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve offer products")
	}

	now := s.now()
	for i := range products {
		product := &products[i]
		active, err := repo.ActiveForProduct(ctx, product.ID, product.CategoryID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active offers")
		}
		if err := repo.SetDiscountedPrice(ctx, product.ID, bestPrice(product.Price, active)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set discounted price")
		}
	}
	return nil
}

// bestPrice returns the lowest discounted price the offers produce, or
// nil when none of them undercuts the list price.
func bestPrice(price decimal.Decimal, offers []models.Offer) *decimal.Decimal {
	var best *decimal.Decimal
	for i := range offers {
		candidate := applyOffer(price, &offers[i])
		if candidate.GreaterThanOrEqual(price) {
			continue
		}
		if best == nil || candidate.LessThan(*best) {
			best = &candidate
		}
	}
	return best
}

func applyOffer(price decimal.Decimal, offer *models.Offer) decimal.Decimal {
	var discounted decimal.Decimal
	switch offer.DiscountType {
	case enums.DiscountTypePercentage:
		discounted = price.Mul(oneHundred.Sub(offer.DiscountValue)).Div(oneHundred).Round(2)
	case enums.DiscountTypeAmount:
		discounted = price.Sub(offer.DiscountValue)
	default:
		return price
	}
	if discounted.Sign() < 0 {
		return decimal.Zero
	}
	return discounted
}

func validateDiscount(discountType enums.DiscountType, value decimal.Decimal) error {
	if !discountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if value.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount value must be positive")
	}
	if discountType == enums.DiscountTypePercentage && value.GreaterThanOrEqual(oneHundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount must be below 100")
	}
	return nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
	}
	offer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load offer")
	}
	return offer, nil
}
