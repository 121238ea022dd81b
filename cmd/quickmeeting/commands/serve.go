package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pysugar/quickmeeting/internal/api"
	"github.com/pysugar/quickmeeting/internal/auth/google"
	"github.com/pysugar/quickmeeting/internal/auth/token"
	"github.com/pysugar/quickmeeting/internal/db"
	"github.com/pysugar/quickmeeting/internal/version"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the account API and the Google sign-in flow",
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	log.Printf("📅 QuickMeeting %s", version.String())

	cfg, database, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	store := db.NewAccountStore(database)
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("⚠️ Failed to close database: %v", err)
		}
	}()

	provider := google.NewClient(cfg.OAuth)
	tokenManager, err := token.NewManager(ctx, store, provider,
		token.WithRefreshMargin(cfg.OAuth.RefreshMarginDuration()))
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(database, tokenManager, provider.OAuthConfig()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 QuickMeeting starting on http://%s", cfg.Addr())
		log.Printf("🔑 Sign in: http://%s/auth/google/login", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Printf("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
