package address

import (
	"context"
	"io"
	"log"

	"drivelous-store/internal/domain"
)

// Service manages an account's shipping address book. It owns the invariant
// that at most one address per profile is flagged default, including the
// repair step after the default is deleted.
type Service struct {
	repo   addressRepo
	logger *log.Logger
}

type addressRepo interface {
	Create(ctx context.Context, addr domain.ShippingAddress) (*domain.ShippingAddress, error)
	Get(ctx context.Context, profileID, id string) (*domain.ShippingAddress, error)
	ListByProfile(ctx context.Context, profileID string) ([]domain.ShippingAddress, error)
	GetDefault(ctx context.Context, profileID string) (*domain.ShippingAddress, error)
	SetDefault(ctx context.Context, profileID, id string) error
	Delete(ctx context.Context, profileID, id string) error
}

func New(repo addressRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, logger: logger}
}

// CreateInput carries the address form fields.
type CreateInput struct {
	Nickname  string
	FirstName string
	LastName  string
	Address1  string
	Address2  string
	City      string
	State     string
	ZipCode   string
	Country   string
	Phone     string
	Default   bool
}

// Create stores a new address. The profile's first address always becomes
// default; an explicit default request demotes the current default.
func (s *Service) Create(ctx context.Context, profileID string, in CreateInput) (*domain.ShippingAddress, error) {
	existing, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	addr := domain.ShippingAddress{
		ProfileID: profileID,
		Nickname:  in.Nickname,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Address1:  in.Address1,
		Address2:  in.Address2,
		City:      in.City,
		State:     in.State,
		ZipCode:   in.ZipCode,
		Country:   in.Country,
		Phone:     in.Phone,
		IsDefault: len(existing) == 0,
	}
	created, err := s.repo.Create(ctx, addr)
	if err != nil {
		return nil, err
	}
	if in.Default && !created.IsDefault {
		if err := s.repo.SetDefault(ctx, profileID, created.ID); err != nil {
			return nil, err
		}
		created.IsDefault = true
	}
	return created, nil
}

// Get returns the address only if it belongs to the profile.
func (s *Service) Get(ctx context.Context, profileID, addressID string) (*domain.ShippingAddress, error) {
	return s.repo.Get(ctx, profileID, addressID)
}

// List returns the profile's address book.
func (s *Service) List(ctx context.Context, profileID string) ([]domain.ShippingAddress, error) {
	return s.repo.ListByProfile(ctx, profileID)
}

// Default returns the profile's default address, or ErrNotFound when the
// address book is empty.
func (s *Service) Default(ctx context.Context, profileID string) (*domain.ShippingAddress, error) {
	return s.repo.GetDefault(ctx, profileID)
}

// MakeDefault flags one address as default, demoting any other.
func (s *Service) MakeDefault(ctx context.Context, profileID, addressID string) error {
	if _, err := s.Get(ctx, profileID, addressID); err != nil {
		return err
	}
	return s.repo.SetDefault(ctx, profileID, addressID)
}

// Delete removes an address. When the deleted address was the default, the
// first remaining address is promoted so the default pointer never references
// a deleted row. Open orders keep their shipping snapshots untouched.
func (s *Service) Delete(ctx context.Context, profileID, addressID string) error {
	addr, err := s.Get(ctx, profileID, addressID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, profileID, addressID); err != nil {
		return err
	}
	if !addr.IsDefault {
		return nil
	}
	remaining, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return nil
	}
	if err := s.repo.SetDefault(ctx, profileID, remaining[0].ID); err != nil {
		return err
	}
	s.logger.Printf("address: promoted address_id=%s to default for profile_id=%s", remaining[0].ID, profileID)
	return nil
}
