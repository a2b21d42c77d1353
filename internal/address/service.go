package address

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	pkgerrors "github.com/arjunvnair/modakart-backend/pkg/errors"
)

// Service manages the user's address book.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, input AddressInput) (*models.Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*models.Address, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
	ExistsForUser(ctx context.Context, addressID, userID uuid.UUID) (bool, error)
}

// AddressInput carries one address book entry.
type AddressInput struct {
	UserID   uuid.UUID
	FullName string
	Email    string
	Phone    string
	Country  string
	State    string
	City     string
	Landmark string
	Pincode  string
}

type service struct {
	repo Repository
}

// NewService wires an address service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	return addresses, nil
}

func (s *service) Create(ctx context.Context, input AddressInput) (*models.Address, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	address := &models.Address{
		ID:       uuid.New(),
		UserID:   input.UserID,
		FullName: strings.TrimSpace(input.FullName),
		Email:    strings.TrimSpace(input.Email),
		Phone:    strings.TrimSpace(input.Phone),
		Country:  input.Country,
		State:    input.State,
		City:     input.City,
		Landmark: input.Landmark,
		Pincode:  input.Pincode,
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
	}
	return address, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*models.Address, error) {
	input.UserID = userID
	if err := validate(input); err != nil {
		return nil, err
	}

	address, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	if address.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to user")
	}

	address.FullName = strings.TrimSpace(input.FullName)
	address.Email = strings.TrimSpace(input.Email)
	address.Phone = strings.TrimSpace(input.Phone)
	address.Country = input.Country
	address.State = input.State
	address.City = input.City
	address.Landmark = input.Landmark
	address.Pincode = input.Pincode

	if err := s.repo.Update(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
	}
	return address, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if userID == uuid.Nil || addressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and address id are required")
	}
	if err := s.repo.Delete(ctx, addressID, userID); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
	}
	return nil
}

func (s *service) ExistsForUser(ctx context.Context, addressID, userID uuid.UUID) (bool, error) {
	return s.repo.ExistsForUser(ctx, addressID, userID)
}

func validate(input AddressInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	for field, value := range map[string]string{
		"full name": input.FullName,
		"phone":     input.Phone,
		"country":   input.Country,
		"state":     input.State,
		"city":      input.City,
		"pincode":   input.Pincode,
	} {
		if strings.TrimSpace(value) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
	}
	return nil
}
