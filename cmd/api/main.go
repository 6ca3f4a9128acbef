package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/simvault/simvault/internal/api"
	"github.com/simvault/simvault/internal/auth"
	"github.com/simvault/simvault/internal/infra/logging"
	"github.com/simvault/simvault/internal/infra/pgutils"
	"github.com/simvault/simvault/internal/provider/fivesim"
	pgledger "github.com/simvault/simvault/internal/repos/ledger/postgres"
	pgpurchases "github.com/simvault/simvault/internal/repos/purchases/postgres"
	pgwallets "github.com/simvault/simvault/internal/repos/wallets/postgres"
	"github.com/simvault/simvault/internal/services/purchase"
	"github.com/simvault/simvault/pkg/envconf"
	"github.com/simvault/simvault/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		return db.Close()
	})

	vendor := fivesim.New(cfg.FiveSimBaseURL, cfg.FiveSimAPIKey)
	resolver := auth.NewClient(cfg.SupabaseURL, cfg.ServiceRoleKey)

	purchaseSrv := purchase.New(
		vendor,
		pgwallets.New(db),
		pgledger.New(db),
		pgpurchases.New(db),
		cfg.PriceToCreditRate,
	)

	// --- HTTP server ---
	handler := api.NewHandler(purchaseSrv, vendor, resolver, cfg.ServiceRoleKey)
	srv := api.NewServer(cfg.Port, handler)

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port, "rate", cfg.PriceToCreditRate)

	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
