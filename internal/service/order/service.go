package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"time"

	"drivelous-store/internal/domain"
	orderrepo "drivelous-store/internal/repository/order"
	"drivelous-store/internal/stripe"
)

// Service drives an order through its two states. An order is created OPEN
// alongside its cart, accumulates shipping and billing snapshots, and moves
// to COMPLETED exactly once when finalize succeeds.
type Service struct {
	orders  orderRepo
	carts   cartStore
	ledger  stockLedger
	address addressBook
	billing billingCache
	charger charger
	mailer  confirmationMailer
	logger  *log.Logger
}

type orderRepo interface {
	Create(ctx context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error)
	GetByCart(ctx context.Context, cartID string) (*domain.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	GetOpenByProfile(ctx context.Context, profileID string) (*domain.Order, error)
	ListCompletedByProfile(ctx context.Context, profileID string) ([]domain.Order, error)
	OrderIDExists(ctx context.Context, orderID string) (bool, error)
	UpdateShipping(ctx context.Context, id string, addressID *string, snap domain.ShippingSnapshot) error
	UpdateBilling(ctx context.Context, id string, snap domain.BillingSnapshot) error
	Complete(ctx context.Context, id string, completedAt time.Time) error
}

type cartStore interface {
	Get(ctx context.Context, id string) (*domain.Cart, error)
	ConfirmStock(ctx context.Context, cart *domain.Cart) (bool, error)
}

type stockLedger interface {
	CommitCart(ctx context.Context, cart *domain.Cart) error
}

type addressBook interface {
	Get(ctx context.Context, profileID, addressID string) (*domain.ShippingAddress, error)
	Default(ctx context.Context, profileID string) (*domain.ShippingAddress, error)
}

type billingCache interface {
	DefaultBilling(ctx context.Context, profileID string) (*domain.DefaultBilling, error)
}

type charger interface {
	CreateCharge(ctx context.Context, params stripe.ChargeParams) (*stripe.Charge, error)
}

type confirmationMailer interface {
	SendOrderConfirmation(ctx context.Context, to string, order *domain.Order, cart *domain.Cart) error
}

func New(orders orderRepo, carts cartStore, ledger stockLedger, address addressBook, billing billingCache, charger charger, mailer confirmationMailer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		orders:  orders,
		carts:   carts,
		ledger:  ledger,
		address: address,
		billing: billing,
		charger: charger,
		mailer:  mailer,
		logger:  logger,
	}
}

const orderIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const orderIDLength = 8

// CreateOrGet returns the order for a cart, creating an open one with a
// fresh order id if none exists. Empty shipping and billing fields are
// auto-populated from the profile's default address and cached default
// billing; fields the customer already chose are never overwritten. A still
// open order whose source address was edited gets its shipping snapshot
// refreshed.
func (s *Service) CreateOrGet(ctx context.Context, profile *domain.Profile, cart *domain.Cart) (*domain.Order, error) {
	if cart.Size() == 0 {
		return nil, domain.ErrEmptyCart
	}
	ord, err := s.orders.GetByCart(ctx, cart.ID)
	if errors.Is(err, domain.ErrNotFound) {
		ord, err = s.create(ctx, profile.ID, cart.ID)
	}
	if err != nil {
		return nil, err
	}
	if !ord.Open() {
		return ord, nil
	}
	if err := s.refreshShipping(ctx, profile.ID, ord); err != nil {
		return nil, err
	}
	if err := s.autofill(ctx, profile.ID, ord); err != nil {
		return nil, err
	}
	return ord, nil
}

func (s *Service) create(ctx context.Context, profileID, cartID string) (*domain.Order, error) {
	orderID, err := s.generateOrderID(ctx)
	if err != nil {
		return nil, err
	}
	ord, err := s.orders.Create(ctx, orderrepo.CreateOrderInput{
		ProfileID: profileID,
		CartID:    cartID,
		OrderID:   orderID,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// A duplicate request created the order first.
		return s.orders.GetByCart(ctx, cartID)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order: created order_id=%s cart_id=%s", ord.OrderID, cartID)
	return ord, nil
}

// generateOrderID draws a human-shareable token and retries until it is
// unique among all existing orders.
func (s *Service) generateOrderID(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, orderIDLength)
		for i := range buf {
			buf[i] = orderIDChars[rand.IntN(len(orderIDChars))]
		}
		id := string(buf)
		exists, err := s.orders.OrderIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
}

// refreshShipping re-copies the snapshot when the referenced address changed
// since it was attached. A deleted source address leaves the snapshot as
// history.
func (s *Service) refreshShipping(ctx context.Context, profileID string, ord *domain.Order) error {
	if ord.ShippingAddressID == nil {
		return nil
	}
	addr, err := s.address.Get(ctx, profileID, *ord.ShippingAddressID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	snap := addr.Snapshot()
	if snap == ord.Shipping {
		return nil
	}
	if err := s.orders.UpdateShipping(ctx, ord.ID, ord.ShippingAddressID, snap); err != nil {
		return err
	}
	ord.Shipping = snap
	return nil
}

func (s *Service) autofill(ctx context.Context, profileID string, ord *domain.Order) error {
	if !ord.HasShipping() {
		addr, err := s.address.Default(ctx, profileID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if addr != nil {
			if err := s.orders.UpdateShipping(ctx, ord.ID, &addr.ID, addr.Snapshot()); err != nil {
				return err
			}
			ord.ShippingAddressID = &addr.ID
			ord.Shipping = addr.Snapshot()
		}
	}
	if !ord.HasBilling() {
		snap, err := s.billing.DefaultBilling(ctx, profileID)
		if err != nil {
			return err
		}
		if !snap.Empty() {
			billing := billingFromDefault(*snap)
			if err := s.orders.UpdateBilling(ctx, ord.ID, billing); err != nil {
				return err
			}
			ord.Billing = billing
		}
	}
	return nil
}

// UseShippingAddress attaches one of the profile's addresses to an open
// order, snapshotting its fields.
func (s *Service) UseShippingAddress(ctx context.Context, profileID string, ord *domain.Order, addressID string) error {
	if !ord.Open() {
		return domain.ErrOrderCompleted
	}
	addr, err := s.address.Get(ctx, profileID, addressID)
	if err != nil {
		return err
	}
	snap := addr.Snapshot()
	if err := s.orders.UpdateShipping(ctx, ord.ID, &addr.ID, snap); err != nil {
		return err
	}
	ord.ShippingAddressID = &addr.ID
	ord.Shipping = snap
	return nil
}

// UseBilling attaches a billing snapshot to an open order.
func (s *Service) UseBilling(ctx context.Context, ord *domain.Order, snap domain.BillingSnapshot) error {
	if !ord.Open() {
		return domain.ErrOrderCompleted
	}
	if err := s.orders.UpdateBilling(ctx, ord.ID, snap); err != nil {
		return err
	}
	ord.Billing = snap
	return nil
}

// Finalize completes an open order: re-confirm stock, decrement it and retire
// the cart, charge the provider, then mark the order collected and send the
// confirmation. A cart already retired by an earlier attempt whose charge
// failed skips straight to the charge, so stock is never decremented twice
// for the same order.
func (s *Service) Finalize(ctx context.Context, profile *domain.Profile, ord *domain.Order, orderEmail string) (*domain.Order, error) {
	if !ord.Open() {
		return nil, domain.ErrOrderCompleted
	}
	if !ord.HasShipping() {
		return nil, domain.ErrMissingShippingAddress
	}
	if !ord.HasBilling() {
		return nil, domain.ErrMissingPaymentMethod
	}

	cart, err := s.carts.Get(ctx, ord.CartID)
	if err != nil {
		return nil, err
	}
	if cart.Size() == 0 {
		return nil, domain.ErrEmptyCart
	}

	if cart.Active() {
		changed, err := s.carts.ConfirmStock(ctx, cart)
		if err != nil {
			return nil, err
		}
		if changed {
			return nil, domain.ErrStockChanged
		}
		if err := s.ledger.CommitCart(ctx, cart); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				// Lost the race to another buyer between confirm and commit.
				if _, cerr := s.carts.ConfirmStock(ctx, cart); cerr != nil {
					return nil, cerr
				}
				return nil, domain.ErrStockChanged
			}
			return nil, err
		}
	}

	if _, err := s.charger.CreateCharge(ctx, stripe.ChargeParams{
		AmountCents: cart.TotalCents,
		Currency:    "usd",
		CustomerID:  profile.StripeID,
		CardID:      ord.Billing.CardID,
		Description: fmt.Sprintf("Payment for order #%s", ord.OrderID),
	}); err != nil {
		var provErr *stripe.Error
		if errors.As(err, &provErr) && provErr.Declined() {
			return nil, fmt.Errorf("%w: %s", domain.ErrChargeDeclined, provErr.Message)
		}
		return nil, err
	}

	now := time.Now()
	if err := s.orders.Complete(ctx, ord.ID, now); err != nil {
		return nil, err
	}
	ord.Status = domain.OrderStatusCompleted
	ord.Active = false
	ord.DateCompleted = &now
	s.logger.Printf("order: completed order_id=%s total_cents=%d", ord.OrderID, cart.TotalCents)

	to := orderEmail
	if to == "" {
		to = profile.Email
	}
	if err := s.mailer.SendOrderConfirmation(ctx, to, ord, cart); err != nil {
		// Confirmation failures never unwind a captured payment.
		s.logger.Printf("order: confirmation email for order_id=%s failed: %v", ord.OrderID, err)
	}
	return ord, nil
}

// Open returns the profile's current open order, if any.
func (s *Service) Open(ctx context.Context, profileID string) (*domain.Order, error) {
	return s.orders.GetOpenByProfile(ctx, profileID)
}

// History lists completed orders, most recent first.
func (s *Service) History(ctx context.Context, profileID string) ([]domain.Order, error) {
	return s.orders.ListCompletedByProfile(ctx, profileID)
}

// Lookup fetches an order by its shareable id, scoped to its owner.
func (s *Service) Lookup(ctx context.Context, profileID, orderID string) (*domain.Order, error) {
	ord, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.ProfileID != profileID {
		return nil, domain.ErrNotFound
	}
	return ord, nil
}

func billingFromDefault(snap domain.DefaultBilling) domain.BillingSnapshot {
	return domain.BillingSnapshot{
		FullName: snap.FullName,
		CardID:   snap.CardID,
		Address1: snap.Address1,
		Address2: snap.Address2,
		City:     snap.City,
		State:    snap.State,
		ZipCode:  snap.ZipCode,
		Country:  snap.Country,
		ExpMonth: snap.ExpMonth,
		ExpYear:  snap.ExpYear,
		Last4:    snap.Last4,
		Brand:    snap.Brand,
	}
}
