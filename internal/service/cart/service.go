package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"drivelous-store/internal/domain"
	"drivelous-store/internal/inventory"
	cartrepo "drivelous-store/internal/repository/cart"
	catalogrepo "drivelous-store/internal/repository/catalog"
)

// Service resolves cart ownership and mutates cart contents. Every quantity
// passes through the inventory clamp policy before it is persisted.
type Service struct {
	repo    cartRepo
	catalog catalogRepo
	logger  *log.Logger
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByProfile(ctx context.Context, profileID string) (*domain.Cart, error)
	ListActiveByProfile(ctx context.Context, profileID string) ([]domain.Cart, error)
	GetActiveByAnonymous(ctx context.Context, anonymousID string) (*domain.Cart, error)
	AssignProfile(ctx context.Context, anonymousID, profileID string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, in cartrepo.AddLineInput) error
	SetLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, lineID string) error
	SetState(ctx context.Context, cartID, state string) error
}

type catalogRepo interface {
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	GetVariant(ctx context.Context, sku, size string) (*domain.Variant, error)
}

func New(repo cartrepo.Repository, catalog catalogrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

// Owner identifies the requester of a cart. ProfileID is empty for guests.
// CarryOver marks the login transition: the anonymous session's cart, if any,
// should be re-owned by (or merged into) the profile's cart.
type Owner struct {
	ProfileID   string
	AnonymousID string
	CarryOver   bool
}

// Adjustment reports a quantity the clamp policy changed, with the message
// shown to the customer.
type Adjustment struct {
	Reason   inventory.Reason `json:"reason"`
	Accepted int              `json:"accepted"`
	Message  string           `json:"message"`
}

// Resolve returns the owner's single active cart, walking every creation
// scenario: guest fetch-or-create, authenticated fetch-or-create, carry-over
// re-owning at login, and the repair merge when more than one active cart
// exists. Resolution is idempotent and safe under duplicate requests.
func (s *Service) Resolve(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if owner.ProfileID == "" {
		if owner.AnonymousID == "" {
			return nil, errors.New("cart owner required")
		}
		cart, err := s.repo.GetActiveByAnonymous(ctx, owner.AnonymousID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return s.createFor(ctx, cartrepo.CreateCartInput{AnonymousID: &owner.AnonymousID}, owner)
	}

	carts, err := s.repo.ListActiveByProfile(ctx, owner.ProfileID)
	if err != nil {
		return nil, err
	}

	var anonCart *domain.Cart
	if owner.CarryOver && owner.AnonymousID != "" {
		anonCart, err = s.repo.GetActiveByAnonymous(ctx, owner.AnonymousID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	switch {
	case len(carts) == 0 && anonCart == nil:
		return s.createFor(ctx, cartrepo.CreateCartInput{ProfileID: &owner.ProfileID}, owner)
	case len(carts) == 0 && anonCart != nil:
		cart, err := s.repo.AssignProfile(ctx, owner.AnonymousID, owner.ProfileID)
		if err == nil {
			s.logger.Printf("cart: carried over cart_id=%s profile_id=%s", cart.ID, owner.ProfileID)
			return cart, nil
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a race; fall through to plain resolution.
			return s.Resolve(ctx, Owner{ProfileID: owner.ProfileID})
		}
		return nil, err
	case len(carts) == 1 && anonCart == nil:
		return &carts[0], nil
	}

	if anonCart != nil {
		carts = append(carts, *anonCart)
	}
	return s.merge(ctx, owner.ProfileID, carts)
}

func (s *Service) createFor(ctx context.Context, in cartrepo.CreateCartInput, owner Owner) (*domain.Cart, error) {
	cart, err := s.repo.Create(ctx, in)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, err
	}
	// Get-or-create: a duplicate request created the cart first.
	if in.ProfileID != nil {
		return s.repo.GetActiveByProfile(ctx, *in.ProfileID)
	}
	return s.repo.GetActiveByAnonymous(ctx, owner.AnonymousID)
}

type mergedLine struct {
	sku        string
	size       string
	name       string
	quantity   int
	price      int64
	snapshotAt time.Time
}

// merge combines every source cart into one new active cart owned by the
// profile. Quantities for the same (sku, size) are summed and re-clamped
// against current stock; when two sources disagree on a price snapshot the
// more recent snapshot wins. Source carts are marked inactive. Merging a
// singleton set is a no-op returning the singleton.
func (s *Service) merge(ctx context.Context, profileID string, sources []domain.Cart) (*domain.Cart, error) {
	if len(sources) == 1 {
		cart := sources[0]
		if cart.ProfileID != nil && *cart.ProfileID == profileID {
			return &cart, nil
		}
	}

	var order []string
	combined := make(map[string]*mergedLine)
	for _, src := range sources {
		for _, line := range src.Lines {
			key := line.SKU + "\x00" + line.Size
			m, ok := combined[key]
			if !ok {
				m = &mergedLine{sku: line.SKU, size: line.Size, name: line.Name, price: line.UnitPriceCents, snapshotAt: line.CreatedAt}
				combined[key] = m
				order = append(order, key)
			}
			m.quantity += line.Quantity
			if line.CreatedAt.After(m.snapshotAt) {
				m.price = line.UnitPriceCents
				m.name = line.Name
				m.snapshotAt = line.CreatedAt
			}
		}
	}

	// Sources must go inactive before the merged cart is created: the
	// partial unique index allows only one active cart per profile. A
	// failure in between leaves zero active carts, which the next Resolve
	// repairs by creating a fresh one.
	for _, src := range sources {
		if err := s.repo.SetState(ctx, src.ID, domain.CartStateInactive); err != nil {
			return nil, err
		}
	}

	merged, err := s.createFor(ctx, cartrepo.CreateCartInput{ProfileID: &profileID}, Owner{ProfileID: profileID})
	if err != nil {
		return nil, err
	}

	for _, key := range order {
		m := combined[key]
		variant, err := s.catalog.GetVariant(ctx, m.sku, m.size)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		qty, _, _ := inventory.Clamp(m.quantity, variant.Stock)
		if qty < 1 {
			continue
		}
		if err := s.repo.AddLineItem(ctx, merged.ID, cartrepo.AddLineInput{
			SKU:            m.sku,
			Size:           m.size,
			Name:           m.name,
			Quantity:       qty,
			UnitPriceCents: m.price,
		}); err != nil {
			return nil, err
		}
	}

	s.logger.Printf("cart: merged %d carts into cart_id=%s profile_id=%s", len(sources), merged.ID, profileID)
	return s.repo.GetByID(ctx, merged.ID)
}

// Get fetches a cart by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Cart, error) {
	return s.repo.GetByID(ctx, id)
}

// AddItem adds requestedQty units of a variant to the cart, topping up an
// existing line for the same (sku, size). The resulting quantity is clamped;
// a non-nil Adjustment reports the clamp to the caller.
func (s *Service) AddItem(ctx context.Context, cart *domain.Cart, sku, size string, requestedQty int) (*domain.Cart, *Adjustment, error) {
	variant, err := s.catalog.GetVariant(ctx, sku, size)
	if err != nil {
		return nil, nil, err
	}

	if line := findLine(cart, sku, size); line != nil {
		newQty := line.Quantity + requestedQty
		accepted, adjusted, reason := inventory.Clamp(newQty, variant.Stock)
		if accepted < 1 {
			return nil, nil, domain.ErrInsufficientStock
		}
		if err := s.repo.SetLineQuantity(ctx, cart.ID, line.ID, accepted); err != nil {
			return nil, nil, err
		}
		refreshed, err := s.repo.GetByID(ctx, cart.ID)
		if err != nil {
			return nil, nil, err
		}
		return refreshed, adjustmentFor(adjusted, reason, accepted, line.Name), nil
	}

	product, err := s.catalog.GetBySKU(ctx, sku)
	if err != nil {
		return nil, nil, err
	}
	if !product.Active {
		return nil, nil, domain.ErrNotFound
	}

	accepted, adjusted, reason := inventory.Clamp(requestedQty, variant.Stock)
	if accepted < 1 {
		return nil, nil, domain.ErrInsufficientStock
	}
	if err := s.repo.AddLineItem(ctx, cart.ID, cartrepo.AddLineInput{
		SKU:            sku,
		Size:           size,
		Name:           product.Name,
		Quantity:       accepted,
		UnitPriceCents: variant.PriceCents(),
	}); err != nil {
		return nil, nil, err
	}
	refreshed, err := s.repo.GetByID(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	return refreshed, adjustmentFor(adjusted, reason, accepted, product.Name), nil
}

// UpdateItemQuantity sets a line to the requested quantity after clamping.
func (s *Service) UpdateItemQuantity(ctx context.Context, cart *domain.Cart, lineID string, requestedQty int) (*domain.Cart, *Adjustment, error) {
	line := findLineByID(cart, lineID)
	if line == nil {
		return nil, nil, domain.ErrNotFound
	}
	variant, err := s.catalog.GetVariant(ctx, line.SKU, line.Size)
	if err != nil {
		return nil, nil, err
	}
	accepted, adjusted, reason := inventory.Clamp(requestedQty, variant.Stock)
	if accepted < 1 {
		return nil, nil, domain.ErrInsufficientStock
	}
	if err := s.repo.SetLineQuantity(ctx, cart.ID, lineID, accepted); err != nil {
		return nil, nil, err
	}
	refreshed, err := s.repo.GetByID(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	return refreshed, adjustmentFor(adjusted, reason, accepted, line.Name), nil
}

// RemoveItem deletes a line and recomputes the total.
func (s *Service) RemoveItem(ctx context.Context, cart *domain.Cart, lineID string) (*domain.Cart, error) {
	if findLineByID(cart, lineID) == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.repo.RemoveLineItem(ctx, cart.ID, lineID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// ConfirmStock re-validates every line against current stock, persisting any
// adjusted quantity (lines clamped to zero are removed). It reports whether
// anything changed; a true result aborts finalization so the customer sees
// the corrected cart instead of being silently charged for less.
func (s *Service) ConfirmStock(ctx context.Context, cart *domain.Cart) (bool, error) {
	changed := false
	for _, line := range cart.Lines {
		variant, err := s.catalog.GetVariant(ctx, line.SKU, line.Size)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				if err := s.repo.RemoveLineItem(ctx, cart.ID, line.ID); err != nil {
					return false, err
				}
				changed = true
				continue
			}
			return false, err
		}
		accepted, adjusted, _ := inventory.Clamp(line.Quantity, variant.Stock)
		if !adjusted {
			continue
		}
		changed = true
		if accepted < 1 {
			if err := s.repo.RemoveLineItem(ctx, cart.ID, line.ID); err != nil {
				return false, err
			}
			continue
		}
		if err := s.repo.SetLineQuantity(ctx, cart.ID, line.ID, accepted); err != nil {
			return false, err
		}
	}
	return changed, nil
}

func adjustmentFor(adjusted bool, reason inventory.Reason, accepted int, item string) *Adjustment {
	if !adjusted {
		return nil
	}
	return &Adjustment{
		Reason:   reason,
		Accepted: accepted,
		Message:  reason.Message(item),
	}
}

func findLine(cart *domain.Cart, sku, size string) *domain.CartLine {
	for i := range cart.Lines {
		if cart.Lines[i].SKU == sku && cart.Lines[i].Size == size {
			return &cart.Lines[i]
		}
	}
	return nil
}

func findLineByID(cart *domain.Cart, lineID string) *domain.CartLine {
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			return &cart.Lines[i]
		}
	}
	return nil
}
