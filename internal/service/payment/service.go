package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"drivelous-store/internal/domain"
	"drivelous-store/internal/stripe"
)

// Service is the local mirror of the payment provider's card list. It owns
// deduplication, default-method selection, and the cleanup that keeps cached
// snapshots and open orders consistent when cards are deleted or re-pointed.
type Service struct {
	profiles profileRepo
	billing  billingRepo
	orders   orderRepo
	provider provider
	logger   *log.Logger
}

type profileRepo interface {
	SetStripeID(ctx context.Context, id, stripeID string) error
}

type billingRepo interface {
	Get(ctx context.Context, profileID string) (*domain.DefaultBilling, error)
	Update(ctx context.Context, snap domain.DefaultBilling) error
}

type orderRepo interface {
	GetOpenByProfile(ctx context.Context, profileID string) (*domain.Order, error)
	UpdateBilling(ctx context.Context, id string, snap domain.BillingSnapshot) error
}

type provider interface {
	CreateCustomer(ctx context.Context, email string) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)
	ListCards(ctx context.Context, customerID string) ([]stripe.Card, error)
	CreateCard(ctx context.Context, customerID, tokenID string) (*stripe.Card, error)
	UpdateCard(ctx context.Context, customerID, cardID string, details stripe.CardDetails) (*stripe.Card, error)
	DeleteCard(ctx context.Context, customerID, cardID string) error
	SetDefaultCard(ctx context.Context, customerID, cardID string) error
	RetrieveToken(ctx context.Context, tokenID string) (*stripe.Token, error)
}

func New(profiles profileRepo, billing billingRepo, orders orderRepo, prov provider, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{profiles: profiles, billing: billing, orders: orders, provider: prov, logger: logger}
}

// Method is the card view handed to handlers.
type Method struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
	Name     string `json:"name,omitempty"`
	Default  bool   `json:"default"`
}

// EnsureCustomer returns the profile's provider customer id, creating the
// customer lazily on first payment activity.
func (s *Service) EnsureCustomer(ctx context.Context, profile *domain.Profile) (string, error) {
	if profile.StripeID != "" {
		return profile.StripeID, nil
	}
	customer, err := s.provider.CreateCustomer(ctx, profile.Email)
	if err != nil {
		return "", fmt.Errorf("create provider customer: %w", err)
	}
	if err := s.profiles.SetStripeID(ctx, profile.ID, customer.ID); err != nil {
		return "", err
	}
	profile.StripeID = customer.ID
	s.logger.Printf("payment: created provider customer %s for profile_id=%s", customer.ID, profile.ID)
	return customer.ID, nil
}

// ListMethods returns the profile's stored cards in provider order, with the
// provider's default pointer reflected on the matching entry. A profile with
// no provider customer simply has no methods.
func (s *Service) ListMethods(ctx context.Context, profile *domain.Profile) ([]Method, error) {
	if profile.StripeID == "" {
		return nil, nil
	}
	customer, err := s.provider.GetCustomer(ctx, profile.StripeID)
	if err != nil {
		return nil, err
	}
	cards, err := s.provider.ListCards(ctx, profile.StripeID)
	if err != nil {
		return nil, err
	}
	methods := make([]Method, 0, len(cards))
	for _, card := range cards {
		methods = append(methods, Method{
			ID:       card.ID,
			Brand:    card.Brand,
			Last4:    card.Last4,
			ExpMonth: card.ExpMonth,
			ExpYear:  card.ExpYear,
			Name:     card.Name,
			Default:  card.ID == customer.DefaultCard,
		})
	}
	return methods, nil
}

// AddCardInput carries the tokenized card plus the billing details to write
// onto it. Details come either from a chosen shipping address or from the
// payment form; both arrive here in the same shape.
type AddCardInput struct {
	TokenID     string
	Details     stripe.CardDetails
	MakeDefault bool
}

// DetailsFromAddress converts a shipping address into card billing details.
func DetailsFromAddress(addr *domain.ShippingAddress) stripe.CardDetails {
	return stripe.CardDetails{
		Name:     strings.TrimSpace(addr.FirstName + " " + addr.LastName),
		Address1: addr.Address1,
		Address2: addr.Address2,
		City:     addr.City,
		State:    addr.State,
		Zip:      addr.ZipCode,
		Country:  addr.Country,
	}
}

// AddCard stores a new card with the provider. A card whose fingerprint and
// expiry match an existing one is a duplicate: no provider-side create
// happens, and the existing card is optionally re-marked default. A provider
// decline surfaces as ErrCardDeclined with no local record. The first card a
// customer adds always becomes the default.
func (s *Service) AddCard(ctx context.Context, profile *domain.Profile, in AddCardInput) (*Method, bool, error) {
	customerID, err := s.EnsureCustomer(ctx, profile)
	if err != nil {
		return nil, false, err
	}

	token, err := s.provider.RetrieveToken(ctx, in.TokenID)
	if err != nil {
		return nil, false, err
	}
	existing, err := s.provider.ListCards(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	if dup := findDuplicate(token.Card, existing); dup != nil {
		if in.MakeDefault {
			if err := s.MakeDefault(ctx, profile, dup.ID); err != nil {
				return nil, false, err
			}
		}
		return methodFromCard(*dup, in.MakeDefault), true, nil
	}

	card, err := s.provider.CreateCard(ctx, customerID, in.TokenID)
	if err != nil {
		var provErr *stripe.Error
		if errors.As(err, &provErr) && provErr.Declined() {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrCardDeclined, provErr.Message)
		}
		return nil, false, err
	}
	card, err = s.provider.UpdateCard(ctx, customerID, card.ID, in.Details)
	if err != nil {
		return nil, false, err
	}

	makeDefault := in.MakeDefault || len(existing) == 0
	if makeDefault {
		if err := s.setDefault(ctx, profile.ID, customerID, *card); err != nil {
			return nil, false, err
		}
	}
	s.logger.Printf("payment: added card %s for profile_id=%s default=%t", card.ID, profile.ID, makeDefault)
	return methodFromCard(*card, makeDefault), false, nil
}

// MakeDefault points the provider's default at the card and overwrites the
// local default-billing snapshot with the card's full details.
func (s *Service) MakeDefault(ctx context.Context, profile *domain.Profile, cardID string) error {
	if profile.StripeID == "" {
		return domain.ErrNotFound
	}
	card, err := s.findCard(ctx, profile.StripeID, cardID)
	if err != nil {
		return err
	}
	return s.setDefault(ctx, profile.ID, profile.StripeID, *card)
}

func (s *Service) setDefault(ctx context.Context, profileID, customerID string, card stripe.Card) error {
	if err := s.provider.SetDefaultCard(ctx, customerID, card.ID); err != nil {
		return err
	}
	return s.billing.Update(ctx, billingFromCard(profileID, card))
}

// DeleteCard removes a card from the provider after repairing everything that
// referenced it. When the deleted card was the cached default, the
// replacement default is the second card of the provider's list, matching the
// provider's own reassignment, or nothing when no other card exists. An open
// order whose billing snapshot matches the deleted card by value has its
// billing cleared so finalize forces a re-selection.
func (s *Service) DeleteCard(ctx context.Context, profile *domain.Profile, cardID string) error {
	if profile.StripeID == "" {
		return domain.ErrNotFound
	}
	cards, err := s.provider.ListCards(ctx, profile.StripeID)
	if err != nil {
		return err
	}
	var deleted *stripe.Card
	for i := range cards {
		if cards[i].ID == cardID {
			deleted = &cards[i]
			break
		}
	}
	if deleted == nil {
		return domain.ErrNotFound
	}

	snap, err := s.billing.Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if snap != nil && matchesBilling(*deleted, *snap) {
		if len(cards) > 1 {
			if err := s.billing.Update(ctx, billingFromCard(profile.ID, cards[1])); err != nil {
				return err
			}
		} else {
			if err := s.billing.Update(ctx, domain.DefaultBilling{ProfileID: profile.ID}); err != nil {
				return err
			}
		}
	}

	order, err := s.orders.GetOpenByProfile(ctx, profile.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if order != nil && matchesOrderBilling(*deleted, order.Billing) {
		if err := s.orders.UpdateBilling(ctx, order.ID, domain.BillingSnapshot{}); err != nil {
			return err
		}
		s.logger.Printf("payment: cleared billing on open order %s after card delete", order.OrderID)
	}

	return s.provider.DeleteCard(ctx, profile.StripeID, cardID)
}

// BillingSnapshot freezes one of the profile's provider cards into the shape
// attached to an order.
func (s *Service) BillingSnapshot(ctx context.Context, profile *domain.Profile, cardID string) (domain.BillingSnapshot, error) {
	if profile.StripeID == "" {
		return domain.BillingSnapshot{}, domain.ErrNotFound
	}
	card, err := s.findCard(ctx, profile.StripeID, cardID)
	if err != nil {
		return domain.BillingSnapshot{}, err
	}
	return domain.BillingSnapshot{
		FullName: card.Name,
		CardID:   card.ID,
		Address1: card.AddressLine1,
		Address2: card.AddressLine2,
		City:     card.AddressCity,
		State:    card.AddressState,
		ZipCode:  card.AddressZip,
		Country:  card.AddressCountry,
		ExpMonth: card.ExpMonth,
		ExpYear:  card.ExpYear,
		Last4:    card.Last4,
		Brand:    card.Brand,
	}, nil
}

// DefaultBilling returns the cached default-billing snapshot, which may be
// empty when the profile has no cards.
func (s *Service) DefaultBilling(ctx context.Context, profileID string) (*domain.DefaultBilling, error) {
	snap, err := s.billing.Get(ctx, profileID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.DefaultBilling{ProfileID: profileID}, nil
	}
	return snap, err
}

func (s *Service) findCard(ctx context.Context, customerID, cardID string) (*stripe.Card, error) {
	cards, err := s.provider.ListCards(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].ID == cardID {
			return &cards[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// findDuplicate reports an existing card with the same fingerprint and
// expiry as the tokenized one.
func findDuplicate(tokenCard stripe.Card, existing []stripe.Card) *stripe.Card {
	for i := range existing {
		c := &existing[i]
		if c.Fingerprint == tokenCard.Fingerprint && c.ExpMonth == tokenCard.ExpMonth && c.ExpYear == tokenCard.ExpYear {
			return c
		}
	}
	return nil
}

func matchesBilling(card stripe.Card, snap domain.DefaultBilling) bool {
	return card.Last4 == snap.Last4 && card.ExpMonth == snap.ExpMonth && card.ExpYear == snap.ExpYear
}

func matchesOrderBilling(card stripe.Card, snap domain.BillingSnapshot) bool {
	return snap.Last4 != "" && card.Last4 == snap.Last4 && card.ExpMonth == snap.ExpMonth && card.ExpYear == snap.ExpYear
}

func billingFromCard(profileID string, card stripe.Card) domain.DefaultBilling {
	return domain.DefaultBilling{
		ProfileID: profileID,
		CardID:    card.ID,
		FullName:  card.Name,
		Address1:  card.AddressLine1,
		Address2:  card.AddressLine2,
		City:      card.AddressCity,
		State:     card.AddressState,
		ZipCode:   card.AddressZip,
		Country:   card.AddressCountry,
		ExpMonth:  card.ExpMonth,
		ExpYear:   card.ExpYear,
		Last4:     card.Last4,
		Brand:     card.Brand,
		UpdatedAt: time.Now(),
	}
}

func methodFromCard(card stripe.Card, isDefault bool) *Method {
	return &Method{
		ID:       card.ID,
		Brand:    card.Brand,
		Last4:    card.Last4,
		ExpMonth: card.ExpMonth,
		ExpYear:  card.ExpYear,
		Name:     card.Name,
		Default:  isDefault,
	}
}
