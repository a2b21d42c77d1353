package cart

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/internal/checkout"
	"github.com/arjunvnair/modakart-backend/pkg/db"
	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
)

const cartItemConstraint = "idx_cart_items_cart_variant"

// Service manages the user's pre-checkout cart. Orders consume the cart
// through ResolvedLines and clear it via ClearTx once placement commits.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	ResolvedLines(ctx context.Context, userID uuid.UUID) ([]checkout.Line, error)
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// AddItemInput places one variant selection into the cart.
type AddItemInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int
}

type variantChecker interface {
	VariantBelongsToProduct(ctx context.Context, variantID, productID uuid.UUID) (bool, error)
}

type service struct {
	repo     Repository
	variants variantChecker
}

// NewService wires a cart service with the provided repository and
// catalog checker.
func NewService(repo Repository, variants variantChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if variants == nil {
		return nil, fmt.Errorf("variant checker required")
	}
	return &service{repo: repo, variants: variants}, nil
}

// Get returns the user's cart, creating an empty one on first touch.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.ensure(ctx, userID)
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.Cart, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil || input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and variant id are required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	ok, err := s.variants.VariantBelongsToProduct(ctx, input.VariantID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify variant")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
	}

	cart, err := s.ensure(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Quantity:  input.Quantity,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		if db.IsUniqueViolation(err, cartItemConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "variant is already in the cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	return s.reload(ctx, input.UserID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindItem(ctx, cart.ID, itemID); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if err := s.repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.reload(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindItem(ctx, cart.ID, itemID); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.reload(ctx, userID)
}

// ResolvedLines maps the cart to priced checkout lines.
func (s *service) ResolvedLines(ctx context.Context, userID uuid.UUID) ([]checkout.Line, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]checkout.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, checkout.Line{
			Product:  item.Product,
			Variant:  item.Variant,
			Quantity: item.Quantity,
		})
	}
	return lines, nil
}

// ClearTx removes every cart item inside the caller's transaction.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := repo.DeleteItemsByCart(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) ensure(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	cart = &models.Cart{ID: uuid.New(), UserID: userID}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return cart, nil
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}
