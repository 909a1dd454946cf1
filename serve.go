package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	fb "firebase.google.com/go/v4"
	"github.com/spf13/cobra"

	"taskboard/config"
	"taskboard/database"
	"taskboard/firebase"
	"taskboard/handlers"
	"taskboard/session"
	"taskboard/tasks"
	"taskboard/utilities"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// closer releases a storage backend.
type closer func() error

// openRepository picks the task store for DB_DRIVER. The SQL stores double
// as the health check; Firestore has none.
func openRepository(ctx context.Context, app *fb.App, cfg config.Config) (tasks.Repository, handlers.Pinger, closer, error) {
	if cfg.Database.Driver == config.DriverFirestore {
		fs, err := firebase.GetFirestoreClient(ctx, app)
		if err != nil {
			return nil, nil, nil, err
		}
		return firebase.NewTaskStore(fs), nil, fs.Close, nil
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	store := database.NewTaskStore(db, cfg.Database.Driver)
	return store, store, db.Close, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := utilities.SetupTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			utilities.LogError(err, "flush traces")
		}
	}()

	app, err := firebase.InitializeApp(ctx, cfg.Firebase)
	if err != nil {
		return err
	}
	identity, err := firebase.NewClient(ctx, app, cfg.Firebase)
	if err != nil {
		return err
	}

	repo, pinger, closeRepo, err := openRepository(ctx, app, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			utilities.LogError(err, "close storage")
		}
	}()

	sessions := session.NewStore(identity, session.Options{
		TrustForwardedProto: cfg.Session.TrustForwardedProto,
		RefreshMaxAge:       cfg.Session.RefreshMaxAge,
	})
	srv, err := handlers.NewServer(identity, sessions, tasks.NewService(repo, cfg.Database.QueryTimeout), pinger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.Port),
		Handler:           NewRouter(srv, sessions, cfg.Server.CORSAllowedOrigins),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          log.New(logWriter{}, "", 0),
	}

	errCh := make(chan error, 1)
	go func() {
		utilities.Logger().Info().Str("port", cfg.Server.Port).Str("db_driver", cfg.Database.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	utilities.LogInfo("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	utilities.LogInfo("http server stopped")
	return nil
}
