// Package stripe is a minimal client for the subset of Stripe's card and
// charge API the storefront calls. The client is constructed once at process
// start and passed by reference to every component that needs it.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

// Client talks to the payment provider. All calls are synchronous and bounded
// by the underlying HTTP client's timeout; failures surface as *Error or a
// transport error, never as a hang.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (tests, mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient swaps the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(apiKey string, logger *log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Customer is the provider-side account a profile's cards hang off.
type Customer struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DefaultCard string `json:"default_card"`
}

// Card mirrors the provider's card object, including the billing address
// details stored against it.
type Card struct {
	ID             string `json:"id"`
	Fingerprint    string `json:"fingerprint"`
	Last4          string `json:"last4"`
	Brand          string `json:"brand"`
	ExpMonth       int    `json:"exp_month"`
	ExpYear        int    `json:"exp_year"`
	Name           string `json:"name"`
	AddressLine1   string `json:"address_line1"`
	AddressLine2   string `json:"address_line2"`
	AddressCity    string `json:"address_city"`
	AddressState   string `json:"address_state"`
	AddressZip     string `json:"address_zip"`
	AddressCountry string `json:"address_country"`
}

// Token is a tokenized card produced by the provider's checkout widget.
type Token struct {
	ID   string `json:"id"`
	Card Card   `json:"card"`
}

// Charge is the result of a successful payment.
type Charge struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Paid     bool   `json:"paid"`
}

// CardDetails carries the billing address written onto a newly created card.
type CardDetails struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
}

// ChargeParams describes a charge against a stored card.
type ChargeParams struct {
	AmountCents int64
	Currency    string
	CustomerID  string
	CardID      string
	Description string
}

// Error is the provider's structured failure. Type "card_error" means the
// card or charge was declined; everything else is an API or transport-level
// problem.
type Error struct {
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("stripe: %s (%s)", e.Message, e.Type)
	}
	return fmt.Sprintf("stripe: %s error (http %d)", e.Type, e.HTTPStatus)
}

// Declined reports whether the provider rejected the card or charge, as
// opposed to a request or transport failure.
func (e *Error) Declined() bool {
	return e.Type == "card_error"
}

func (c *Client) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	form := url.Values{"email": {email}}
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+customerID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCards returns the customer's cards in provider order. The provider's
// default-reassignment rule depends on this order: when the default card is
// deleted, the second card in this list becomes the new default.
func (c *Client) ListCards(ctx context.Context, customerID string) ([]Card, error) {
	var out struct {
		Data []Card `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+customerID+"/cards", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) CreateCard(ctx context.Context, customerID, tokenID string) (*Card, error) {
	form := url.Values{"card": {tokenID}}
	var out Card
	if err := c.do(ctx, http.MethodPost, "/v1/customers/"+customerID+"/cards", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RetrieveCard(ctx context.Context, customerID, cardID string) (*Card, error) {
	var out Card
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+customerID+"/cards/"+cardID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCard writes billing details onto an existing card.
func (c *Client) UpdateCard(ctx context.Context, customerID, cardID string, details CardDetails) (*Card, error) {
	form := url.Values{}
	setIfPresent(form, "name", details.Name)
	setIfPresent(form, "address_line1", details.Address1)
	setIfPresent(form, "address_line2", details.Address2)
	setIfPresent(form, "address_city", details.City)
	setIfPresent(form, "address_state", details.State)
	setIfPresent(form, "address_zip", details.Zip)
	setIfPresent(form, "address_country", details.Country)
	var out Card
	if err := c.do(ctx, http.MethodPost, "/v1/customers/"+customerID+"/cards/"+cardID, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCard(ctx context.Context, customerID, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/customers/"+customerID+"/cards/"+cardID, nil, nil)
}

// SetDefaultCard moves the provider-side default pointer.
func (c *Client) SetDefaultCard(ctx context.Context, customerID, cardID string) error {
	form := url.Values{"default_card": {cardID}}
	return c.do(ctx, http.MethodPost, "/v1/customers/"+customerID, form, nil)
}

func (c *Client) RetrieveToken(ctx context.Context, tokenID string) (*Token, error) {
	var out Token
	if err := c.do(ctx, http.MethodGet, "/v1/tokens/"+tokenID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error) {
	form := url.Values{
		"amount":   {strconv.FormatInt(params.AmountCents, 10)},
		"currency": {params.Currency},
		"customer": {params.CustomerID},
		"card":     {params.CardID},
	}
	setIfPresent(form, "description", params.Description)
	var out Charge
	if err := c.do(ctx, http.MethodPost, "/v1/charges", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.apiKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stripe: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error Error `json:"error"`
		}
		apiErr := &Error{Type: "api_error", HTTPStatus: resp.StatusCode}
		if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Error.Type != "" {
			apiErr = &wrapper.Error
			apiErr.HTTPStatus = resp.StatusCode
		}
		c.logger.Printf("stripe: %s %s status=%d type=%s code=%s", method, path, resp.StatusCode, apiErr.Type, apiErr.Code)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("stripe: decode response: %w", err)
	}
	return nil
}

func setIfPresent(form url.Values, key, val string) {
	if val != "" {
		form.Set(key, val)
	}
}
