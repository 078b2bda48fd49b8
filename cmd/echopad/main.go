package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/echopad/echopad/internal/adapter/driven/identity"
	"github.com/echopad/echopad/internal/adapter/driven/speechapi"
	sqliteadapter "github.com/echopad/echopad/internal/adapter/driven/sqlite"
	httphandler "github.com/echopad/echopad/internal/adapter/driving/http"
	"github.com/echopad/echopad/internal/application"
	"github.com/echopad/echopad/internal/config"
	"github.com/echopad/echopad/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"speech_url", cfg.SpeechURL,
		"upload_timeout", cfg.UploadTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	transcriptStore := sqliteadapter.NewTranscriptRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)

	speechClient, err := speechapi.NewClient(speechapi.Config{
		Endpoint: cfg.SpeechURL,
		Timeout:  cfg.UploadTimeout,
	})
	if err != nil {
		return err
	}

	identityClient, err := identity.NewClient(identity.Config{
		IntrospectURL: cfg.IntrospectURL,
		TokenURL:      cfg.TokenURL,
	})
	if err != nil {
		return err
	}

	// 6. Seed the credential provider from the store: a credential saved in
	// a previous run survives restarts. Absence is fine; uploads are
	// rejected with 401 until sign-in.
	var stored *model.Credential
	if cfg.SecretKey != nil {
		stored, err = credentialStore.Load(ctx)
		if err != nil {
			slog.Warn("stored credential unreadable, starting signed out", "error", err)
			stored = nil
		}
	}
	provider := application.NewCredentialProvider(stored)
	if stored != nil {
		slog.Info("credential restored", "subject", stored.SubjectID)
	} else {
		slog.Info("no stored credential, sign-in required before uploads")
	}

	// 7. Wire application services.
	credSvc := application.NewCredentialService(identityClient, credentialStore, provider, slog.Default())
	uploadSvc := application.NewUploadService(
		transcriptStore,
		speechClient,
		credSvc,
		provider,
		application.NewRateLimiter(slog.Default()),
		application.NewNotifier(),
		slog.Default(),
	)

	// 8. Create HTTP handler and server.
	apiHandler := httphandler.NewHandler(transcriptStore, uploadSvc, credSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("echopad started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown: drain the HTTP server, then let in-flight
	// uploads reach their terminal state so no record is left pending by
	// the shutdown itself.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	uploadSvc.Wait()

	slog.Info("shutdown complete")
	return nil
}
