package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/anonto42/storydesk/backend/internal/router"
	"github.com/anonto42/storydesk/backend/internal/uploads"
	"github.com/anonto42/storydesk/backend/pkg/config"
	"github.com/anonto42/storydesk/backend/pkg/firebase"
	"github.com/anonto42/storydesk/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		return serve(cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schema, err := validators.ParseSchemaRevision(cfg.Validation.StorySchema)
	if err != nil {
		return err
	}

	db, err := config.InitDB(cfg.Store, log)
	if err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}
	defer db.CloseDB()
	if err := db.Migrate(); err != nil {
		return err
	}

	var fb *firebase.App
	if cfg.Firebase.CredentialsPath != "" {
		bucket := ""
		if cfg.Storage.Driver == "firebase" {
			bucket = cfg.Storage.Bucket
		}
		fb, err = firebase.InitFirebase(ctx, cfg.Firebase.CredentialsPath, bucket, log)
		if err != nil {
			return fmt.Errorf("failed to initialize firebase: %w", err)
		}
	}

	store, err := objectStore(ctx, cfg, fb)
	if err != nil {
		return err
	}
	coordinator, err := uploads.NewCoordinator(store, uploads.Config{
		Bucket:        cfg.Storage.Bucket,
		Root:          cfg.Storage.Root,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return err
	}
	log.Info("object storage ready", zap.String("driver", cfg.Storage.Driver), zap.String("bucket", cfg.Storage.Bucket))

	stories, episodes, users := router.Repositories(db)
	deps := router.Dependencies{
		Stories:     stories,
		Episodes:    episodes,
		Users:       users,
		Uploader:    coordinator,
		JWTSecret:   cfg.Auth.JWTSecret,
		TokenTTL:    cfg.Auth.TokenTTL,
		StorySchema: schema,
		Log:         log,
	}
	if fb != nil {
		deps.FirebaseAuth = fb.AuthClient
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	config.SetupMiddleware(e, cfg.Server, log)
	router.SetupRoutes(e, deps)

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		errc <- e.Start(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func objectStore(ctx context.Context, cfg config.Config, fb *firebase.App) (uploads.ObjectStore, error) {
	switch cfg.Storage.Driver {
	case "firebase":
		if fb == nil {
			return nil, errors.New("storage.driver firebase needs firebase.credentials_path")
		}
		bucket, err := fb.Bucket(ctx)
		if err != nil {
			return nil, err
		}
		return uploads.NewGCSStore(bucket), nil
	case "s3":
		return uploads.OpenS3(uploads.S3Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			Region:          cfg.Storage.S3.Region,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			BucketName:      cfg.Storage.Bucket,
		})
	}
	return uploads.NewMemoryStore(), nil
}
