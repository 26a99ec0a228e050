package httpserver

import (
	"context"
	"errors"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"drivelous-store/internal/domain"
	accountsvc "drivelous-store/internal/service/account"
	addresssvc "drivelous-store/internal/service/address"
	cartsvc "drivelous-store/internal/service/cart"
	paymentsvc "drivelous-store/internal/service/payment"
)

// AccountService authenticates profiles and sessions.
type AccountService interface {
	Signup(ctx context.Context, in accountsvc.SignupInput) (*domain.Profile, string, error)
	Login(ctx context.Context, email, password string) (*domain.Profile, string, error)
	BeginAnonymous(ctx context.Context) (string, string, error)
	Authenticate(ctx context.Context, token string) (*accountsvc.Identity, error)
	Logout(ctx context.Context, token string) error
}

// CartService resolves and mutates carts.
type CartService interface {
	Resolve(ctx context.Context, owner cartsvc.Owner) (*domain.Cart, error)
	AddItem(ctx context.Context, cart *domain.Cart, sku, size string, requestedQty int) (*domain.Cart, *cartsvc.Adjustment, error)
	UpdateItemQuantity(ctx context.Context, cart *domain.Cart, lineID string, requestedQty int) (*domain.Cart, *cartsvc.Adjustment, error)
	RemoveItem(ctx context.Context, cart *domain.Cart, lineID string) (*domain.Cart, error)
}

// CatalogService serves the browsable product list.
type CatalogService interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
}

// AddressService manages the shipping address book.
type AddressService interface {
	Create(ctx context.Context, profileID string, in addresssvc.CreateInput) (*domain.ShippingAddress, error)
	Get(ctx context.Context, profileID, addressID string) (*domain.ShippingAddress, error)
	List(ctx context.Context, profileID string) ([]domain.ShippingAddress, error)
	MakeDefault(ctx context.Context, profileID, addressID string) error
	Delete(ctx context.Context, profileID, addressID string) error
}

// PaymentService mirrors the provider's card list.
type PaymentService interface {
	ListMethods(ctx context.Context, profile *domain.Profile) ([]paymentsvc.Method, error)
	AddCard(ctx context.Context, profile *domain.Profile, in paymentsvc.AddCardInput) (*paymentsvc.Method, bool, error)
	MakeDefault(ctx context.Context, profile *domain.Profile, cardID string) error
	DeleteCard(ctx context.Context, profile *domain.Profile, cardID string) error
	BillingSnapshot(ctx context.Context, profile *domain.Profile, cardID string) (domain.BillingSnapshot, error)
}

// OrderService drives checkout.
type OrderService interface {
	CreateOrGet(ctx context.Context, profile *domain.Profile, cart *domain.Cart) (*domain.Order, error)
	UseShippingAddress(ctx context.Context, profileID string, ord *domain.Order, addressID string) error
	UseBilling(ctx context.Context, ord *domain.Order, snap domain.BillingSnapshot) error
	Finalize(ctx context.Context, profile *domain.Profile, ord *domain.Order, orderEmail string) (*domain.Order, error)
	History(ctx context.Context, profileID string) ([]domain.Order, error)
	Lookup(ctx context.Context, profileID, orderID string) (*domain.Order, error)
}

// Deps bundles the services the router needs.
type Deps struct {
	Accounts  AccountService
	Carts     CartService
	Catalog   CatalogService
	Addresses AddressService
	Payments  PaymentService
	Orders    OrderService
}

func (d Deps) validate() error {
	if d.Accounts == nil || d.Carts == nil || d.Catalog == nil || d.Addresses == nil || d.Payments == nil || d.Orders == nil {
		return errors.New("httpserver: all services are required")
	}
	return nil
}

type api struct {
	deps   Deps
	logger *log.Logger
}

// buildRouter wires routes for the storefront API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	a := &api{deps: deps, logger: logger}

	router.GET("/products", a.listProducts)
	router.GET("/products/:sku", a.getProduct)

	auth := router.Group("/auth")
	{
		auth.POST("/anonymous", a.beginAnonymous)
		auth.POST("/signup", a.signup)
		auth.POST("/login", a.login)
		auth.POST("/logout", a.authRequired, a.logout)
	}

	cart := router.Group("/cart", a.authRequired)
	{
		cart.GET("", a.getCart)
		cart.POST("/items", a.addCartItem)
		cart.PATCH("/items/:lineID", a.updateCartItem)
		cart.DELETE("/items/:lineID", a.removeCartItem)
	}

	addresses := router.Group("/addresses", a.authRequired, a.profileRequired)
	{
		addresses.GET("", a.listAddresses)
		addresses.POST("", a.createAddress)
		addresses.POST("/:addressID/default", a.makeDefaultAddress)
		addresses.DELETE("/:addressID", a.deleteAddress)
	}

	cards := router.Group("/cards", a.authRequired, a.profileRequired)
	{
		cards.GET("", a.listCards)
		cards.POST("", a.addCard)
		cards.POST("/:cardID/default", a.makeDefaultCard)
		cards.DELETE("/:cardID", a.deleteCard)
	}

	checkout := router.Group("/checkout", a.authRequired, a.profileRequired)
	{
		checkout.POST("", a.beginCheckout)
		checkout.POST("/shipping", a.chooseShipping)
		checkout.POST("/billing", a.chooseBilling)
		checkout.POST("/finalize", a.finalizeCheckout)
	}

	orders := router.Group("/orders", a.authRequired, a.profileRequired)
	{
		orders.GET("", a.listOrders)
		orders.GET("/:orderID", a.getOrder)
	}

	return router, nil
}
