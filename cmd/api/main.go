package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"drivelous-store/internal/config"
	"drivelous-store/internal/db"
	"drivelous-store/internal/httpserver"
	"drivelous-store/internal/inventory"
	"drivelous-store/internal/mailer"
	"drivelous-store/internal/migrate"
	addressrepo "drivelous-store/internal/repository/address"
	billingrepo "drivelous-store/internal/repository/billing"
	cartrepo "drivelous-store/internal/repository/cart"
	catalogrepo "drivelous-store/internal/repository/catalog"
	orderrepo "drivelous-store/internal/repository/order"
	profilerepo "drivelous-store/internal/repository/profile"
	tokenrepo "drivelous-store/internal/repository/token"
	accountsvc "drivelous-store/internal/service/account"
	addresssvc "drivelous-store/internal/service/address"
	cartsvc "drivelous-store/internal/service/cart"
	ordersvc "drivelous-store/internal/service/order"
	paymentsvc "drivelous-store/internal/service/payment"
	"drivelous-store/internal/stripe"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	var stripeOpts []stripe.Option
	if cfg.StripeAPIBase != "" {
		stripeOpts = append(stripeOpts, stripe.WithBaseURL(cfg.StripeAPIBase))
	}
	stripeClient := stripe.New(cfg.StripeAPIKey, logger, stripeOpts...)

	profileRepo := profilerepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewPostgres(dbpool)
	catalogRepo := catalogrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	addressRepo := addressrepo.NewPostgres(dbpool)
	billingRepo := billingrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	ledger := inventory.NewLedger(dbpool, logger)
	confirmationMail := mailer.New(cfg.SMTPAddr, cfg.OrderEmailFrom, logger)

	accountService := accountsvc.New(profileRepo, tokenRepo, logger)
	cartService := cartsvc.New(cartRepo, catalogRepo, logger)
	addressService := addresssvc.New(addressRepo, logger)
	paymentService := paymentsvc.New(profileRepo, billingRepo, orderRepo, stripeClient, logger)
	orderService := ordersvc.New(orderRepo, cartService, ledger, addressService, paymentService, stripeClient, confirmationMail, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Accounts:  accountService,
		Carts:     cartService,
		Catalog:   catalogRepo,
		Addresses: addressService,
		Payments:  paymentService,
		Orders:    orderService,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
