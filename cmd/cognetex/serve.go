package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cognetex/api/internal/app"
	"cognetex/api/internal/authpw"
	"cognetex/api/internal/config"
	"cognetex/api/internal/email"
	"cognetex/api/internal/history"
	"cognetex/api/internal/media"
	"cognetex/api/internal/search"
	"cognetex/api/internal/session"
	"cognetex/api/internal/store"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg, !skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}

func serve(cfg config.Config, migrate bool) error {
	ctx := context.Background()
	var deps app.Deps
	var accounts authpw.Chain
	if cfg.AdminPasswordHash != "" {
		accounts = append(accounts, authpw.NewStaticAccounts(cfg.AdminEmail, cfg.AdminPasswordHash))
	}

	if cfg.DatabaseURL != "" {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if migrate {
			if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
				return fmt.Errorf("migrations failed: %w", err)
			}
		}
		dataStore := store.NewPostgresStore(db)
		deps.Store = dataStore
		deps.Inquiries = dataStore
		deps.FullText = search.NewPgFTS(db)
		accounts = append(accounts, dataStore)
	} else {
		log.Printf("DATABASE_URL not set; serving bundled content read-only")
	}
	if len(accounts) > 0 {
		deps.Accounts = accounts
	}

	if cfg.RedisURL != "" {
		log.Printf("Using Redis for admin sessions")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
	} else {
		log.Printf("Using process memory for admin sessions")
	}

	uploader, err := newUploader(cfg)
	if err != nil {
		return err
	}
	if uploader != nil {
		deps.Uploader = uploader
	}

	if cfg.MeiliURL != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		deps.Meili = meiliClient
	}
	if cfg.HistoryDir != "" {
		if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
			return fmt.Errorf("failed to create history dir: %w", err)
		}
		deps.History = history.New(cfg.HistoryDir)
	}
	deps.Notifier = email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})

	service := app.New(cfg, deps)
	service.Bootstrap(ctx)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Cognetex API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-sigCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	return nil
}

// newUploader returns nil with no error when no image backend is configured.
func newUploader(cfg config.Config) (media.Uploader, error) {
	switch cfg.CDNProvider {
	case "s3":
		if !cfg.S3Configured() {
			log.Printf("CDN_PROVIDER=s3 but S3 credentials are incomplete; image uploads disabled")
			return nil, nil
		}
		objects, err := media.NewObjectStore(media.ObjectStoreConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return objects, nil
	default:
		if !cfg.CloudinaryConfigured() {
			log.Printf("Cloudinary credentials not set; image uploads disabled")
			return nil, nil
		}
		cld, err := media.NewCloudinary(media.CloudinaryConfig{
			CloudName:    cfg.CloudinaryCloudName,
			APIKey:       cfg.CloudinaryAPIKey,
			APISecret:    cfg.CloudinaryAPISecret,
			UploadPreset: cfg.CloudinaryUploadPreset,
		})
		if err != nil {
			return nil, err
		}
		return cld, nil
	}
}
