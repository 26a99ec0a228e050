package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"drivelous-store/internal/domain"
	"drivelous-store/internal/stripe"
)

type stubProvider struct {
	customers   map[string]*stripe.Customer
	cards       map[string][]stripe.Card
	tokens      map[string]stripe.Token
	declineNext bool
	nextID      int

	deletedCards []string
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		customers: make(map[string]*stripe.Customer),
		cards:     make(map[string][]stripe.Card),
		tokens:    make(map[string]stripe.Token),
	}
}

func (p *stubProvider) CreateCustomer(_ context.Context, email string) (*stripe.Customer, error) {
	p.nextID++
	cus := &stripe.Customer{ID: fmt.Sprintf("cus_%d", p.nextID), Email: email}
	p.customers[cus.ID] = cus
	return cus, nil
}

func (p *stubProvider) GetCustomer(_ context.Context, customerID string) (*stripe.Customer, error) {
	cus, ok := p.customers[customerID]
	if !ok {
		return nil, &stripe.Error{Type: "invalid_request_error", HTTPStatus: 404}
	}
	return cus, nil
}

func (p *stubProvider) ListCards(_ context.Context, customerID string) ([]stripe.Card, error) {
	return append([]stripe.Card(nil), p.cards[customerID]...), nil
}

func (p *stubProvider) CreateCard(_ context.Context, customerID, tokenID string) (*stripe.Card, error) {
	if p.declineNext {
		p.declineNext = false
		return nil, &stripe.Error{Type: "card_error", Code: "card_declined", Message: "Your card was declined.", HTTPStatus: 402}
	}
	tok, ok := p.tokens[tokenID]
	if !ok {
		return nil, &stripe.Error{Type: "invalid_request_error", HTTPStatus: 404}
	}
	p.nextID++
	card := tok.Card
	card.ID = fmt.Sprintf("card_%d", p.nextID)
	p.cards[customerID] = append(p.cards[customerID], card)
	return &card, nil
}

func (p *stubProvider) UpdateCard(_ context.Context, customerID, cardID string, details stripe.CardDetails) (*stripe.Card, error) {
	cards := p.cards[customerID]
	for i := range cards {
		if cards[i].ID == cardID {
			cards[i].Name = details.Name
			cards[i].AddressLine1 = details.Address1
			cards[i].AddressLine2 = details.Address2
			cards[i].AddressCity = details.City
			cards[i].AddressState = details.State
			cards[i].AddressZip = details.Zip
			cards[i].AddressCountry = details.Country
			return &cards[i], nil
		}
	}
	return nil, &stripe.Error{Type: "invalid_request_error", HTTPStatus: 404}
}

func (p *stubProvider) DeleteCard(_ context.Context, customerID, cardID string) error {
	cards := p.cards[customerID]
	for i := range cards {
		if cards[i].ID == cardID {
			p.cards[customerID] = append(cards[:i], cards[i+1:]...)
			p.deletedCards = append(p.deletedCards, cardID)
			return nil
		}
	}
	return &stripe.Error{Type: "invalid_request_error", HTTPStatus: 404}
}

func (p *stubProvider) SetDefaultCard(_ context.Context, customerID, cardID string) error {
	cus, ok := p.customers[customerID]
	if !ok {
		return &stripe.Error{Type: "invalid_request_error", HTTPStatus: 404}
	}
	cus.DefaultCard = cardID
	return nil
}

func (p *stubProvider) RetrieveToken(_ context.Context, tokenID string) (*stripe.Token, error) {
	tok, ok := p.tokens[tokenID]
	if !ok {
		return nil, &stripe.Error{Type: "invalid_request_error", HTTPStatus: 404}
	}
	return &tok, nil
}

func (p *stubProvider) addToken(id, fingerprint string, expMonth, expYear int, last4, brand string) {
	p.tokens[id] = stripe.Token{ID: id, Card: stripe.Card{
		Fingerprint: fingerprint, ExpMonth: expMonth, ExpYear: expYear, Last4: last4, Brand: brand,
	}}
}

type stubProfileRepo struct {
	stripeIDs map[string]string
}

func (s *stubProfileRepo) SetStripeID(_ context.Context, id, stripeID string) error {
	if s.stripeIDs == nil {
		s.stripeIDs = make(map[string]string)
	}
	s.stripeIDs[id] = stripeID
	return nil
}

type stubBillingRepo struct {
	snaps map[string]domain.DefaultBilling
}

func (s *stubBillingRepo) Get(_ context.Context, profileID string) (*domain.DefaultBilling, error) {
	snap, ok := s.snaps[profileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := snap
	return &out, nil
}

func (s *stubBillingRepo) Update(_ context.Context, snap domain.DefaultBilling) error {
	if s.snaps == nil {
		s.snaps = make(map[string]domain.DefaultBilling)
	}
	s.snaps[snap.ProfileID] = snap
	return nil
}

type stubOrderRepo struct {
	open    *domain.Order
	cleared bool
}

func (s *stubOrderRepo) GetOpenByProfile(_ context.Context, profileID string) (*domain.Order, error) {
	if s.open == nil || s.open.ProfileID != profileID {
		return nil, domain.ErrNotFound
	}
	out := *s.open
	return &out, nil
}

func (s *stubOrderRepo) UpdateBilling(_ context.Context, id string, snap domain.BillingSnapshot) error {
	if s.open == nil || s.open.ID != id {
		return domain.ErrNotFound
	}
	s.open.Billing = snap
	s.cleared = snap == domain.BillingSnapshot{}
	return nil
}

func newTestService() (*Service, *stubProvider, *stubProfileRepo, *stubBillingRepo, *stubOrderRepo) {
	prov := newStubProvider()
	profiles := &stubProfileRepo{}
	billing := &stubBillingRepo{}
	orders := &stubOrderRepo{}
	return New(profiles, billing, orders, prov, nil), prov, profiles, billing, orders
}

func testProfile() *domain.Profile {
	return &domain.Profile{ID: "prof-1", Email: "ada@example.com"}
}

func TestEnsureCustomerIsLazyAndSticky(t *testing.T) {
	svc, prov, profiles, _, _ := newTestService()
	profile := testProfile()

	id, err := svc.EnsureCustomer(context.Background(), profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" || profile.StripeID != id {
		t.Fatalf("expected profile updated with customer id, got %q", profile.StripeID)
	}
	if profiles.stripeIDs["prof-1"] != id {
		t.Fatal("expected customer id persisted")
	}

	again, err := svc.EnsureCustomer(context.Background(), profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != id {
		t.Fatalf("expected same customer id, got %s and %s", id, again)
	}
	if len(prov.customers) != 1 {
		t.Fatalf("expected one provider customer, got %d", len(prov.customers))
	}
}

func TestAddCardFirstCardBecomesDefault(t *testing.T) {
	svc, prov, _, billing, _ := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")

	method, dup, err := svc.AddCard(context.Background(), profile, AddCardInput{
		TokenID: "tok_1",
		Details: stripe.CardDetails{Name: "Ada Lovelace", Address1: "1 Main St", City: "Springfield", State: "IL", Zip: "62704", Country: "US"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup {
		t.Fatal("expected no duplicate")
	}
	if !method.Default {
		t.Fatal("expected first card marked default")
	}
	cus := prov.customers[profile.StripeID]
	if cus.DefaultCard != method.ID {
		t.Fatalf("expected provider default %s, got %s", method.ID, cus.DefaultCard)
	}
	snap := billing.snaps["prof-1"]
	if snap.CardID != method.ID || snap.Last4 != "4242" || snap.FullName != "Ada Lovelace" || snap.Address1 != "1 Main St" {
		t.Fatalf("expected billing snapshot mirroring card, got %+v", snap)
	}
}

func TestAddCardDuplicateIsNoOp(t *testing.T) {
	svc, prov, _, _, _ := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")
	prov.addToken("tok_2", "fp-1", 4, 2028, "4242", "Visa")

	first, _, err := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	method, dup, err := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dup {
		t.Fatal("expected duplicate detection")
	}
	if method.ID != first.ID {
		t.Fatalf("expected existing card %s returned, got %s", first.ID, method.ID)
	}
	if got := len(prov.cards[profile.StripeID]); got != 1 {
		t.Fatalf("expected one provider card, got %d", got)
	}
}

func TestAddCardDuplicateCanRemarkDefault(t *testing.T) {
	svc, prov, _, billing, _ := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")
	prov.addToken("tok_2", "fp-2", 9, 2029, "1881", "Mastercard")
	prov.addToken("tok_3", "fp-1", 4, 2028, "4242", "Visa")

	first, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"})
	if _, _, err := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_2", MakeDefault: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, dup, err := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_3", MakeDefault: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dup {
		t.Fatal("expected duplicate detection")
	}
	if prov.customers[profile.StripeID].DefaultCard != first.ID {
		t.Fatal("expected duplicate add to re-point default at existing card")
	}
	if billing.snaps["prof-1"].Last4 != "4242" {
		t.Fatalf("expected snapshot re-synced to 4242, got %+v", billing.snaps["prof-1"])
	}
}

func TestAddCardDeclined(t *testing.T) {
	svc, prov, _, billing, _ := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")
	prov.declineNext = true

	_, _, err := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"})
	if !errors.Is(err, domain.ErrCardDeclined) {
		t.Fatalf("expected ErrCardDeclined, got %v", err)
	}
	if len(prov.cards[profile.StripeID]) != 0 {
		t.Fatal("expected no provider card after decline")
	}
	if len(billing.snaps) != 0 {
		t.Fatal("expected no billing snapshot after decline")
	}
}

func TestDeleteDefaultCardPromotesSecondListedCard(t *testing.T) {
	svc, prov, _, billing, _ := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")
	prov.addToken("tok_2", "fp-2", 9, 2029, "1881", "Mastercard")
	prov.addToken("tok_3", "fp-3", 1, 2030, "0005", "American Express")

	first, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"})
	second, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_2"})
	if _, _, err := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteCard(context.Background(), profile, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := billing.snaps["prof-1"]
	if snap.CardID != second.ID || snap.Last4 != "1881" || snap.ExpMonth != 9 || snap.ExpYear != 2029 || snap.Brand != "Mastercard" {
		t.Fatalf("expected snapshot to mirror second listed card, got %+v", snap)
	}
	if got := len(prov.cards[profile.StripeID]); got != 2 {
		t.Fatalf("expected 2 provider cards left, got %d", got)
	}
}

func TestDeleteLastCardClearsSnapshot(t *testing.T) {
	svc, prov, _, billing, _ := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")

	method, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"})
	if err := svc.DeleteCard(context.Background(), profile, method.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := billing.snaps["prof-1"]
	if !snap.Empty() || snap.Last4 != "" {
		t.Fatalf("expected cleared snapshot, got %+v", snap)
	}
}

func TestDeleteNonDefaultCardKeepsSnapshot(t *testing.T) {
	svc, prov, _, billing, _ := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")
	prov.addToken("tok_2", "fp-2", 9, 2029, "1881", "Mastercard")

	first, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"})
	second, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_2"})

	if err := svc.DeleteCard(context.Background(), profile, second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if billing.snaps["prof-1"].CardID != first.ID {
		t.Fatalf("expected default snapshot untouched, got %+v", billing.snaps["prof-1"])
	}
}

func TestDeleteCardClearsMatchingOpenOrderBilling(t *testing.T) {
	svc, prov, _, _, orders := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")

	method, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"})
	orders.open = &domain.Order{
		ID:        "ord-1",
		ProfileID: "prof-1",
		OrderID:   "A1B2C3",
		Status:    domain.OrderStatusOpen,
		Billing:   domain.BillingSnapshot{CardID: method.ID, Address1: "1 Main St", Last4: "4242", ExpMonth: 4, ExpYear: 2028},
	}

	if err := svc.DeleteCard(context.Background(), profile, method.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !orders.cleared {
		t.Fatal("expected open order billing cleared")
	}
	if orders.open.HasBilling() {
		t.Fatalf("expected empty billing snapshot, got %+v", orders.open.Billing)
	}
}

func TestDeleteCardLeavesUnrelatedOpenOrderAlone(t *testing.T) {
	svc, prov, _, _, orders := newTestService()
	profile := testProfile()
	prov.addToken("tok_1", "fp-1", 4, 2028, "4242", "Visa")
	prov.addToken("tok_2", "fp-2", 9, 2029, "1881", "Mastercard")

	if _, _, err := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, _ := svc.AddCard(context.Background(), profile, AddCardInput{TokenID: "tok_2"})
	orders.open = &domain.Order{
		ID:        "ord-1",
		ProfileID: "prof-1",
		OrderID:   "A1B2C3",
		Status:    domain.OrderStatusOpen,
		Billing:   domain.BillingSnapshot{CardID: "card_other", Address1: "1 Main St", Last4: "4242", ExpMonth: 4, ExpYear: 2028},
	}

	if err := svc.DeleteCard(context.Background(), profile, second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders.cleared {
		t.Fatal("expected unrelated order billing untouched")
	}
}

func TestDeleteUnknownCard(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	profile := testProfile()
	profile.StripeID = "cus_1"

	if err := svc.DeleteCard(context.Background(), profile, "card_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
