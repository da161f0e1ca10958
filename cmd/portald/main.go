package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rentport/core/internal/app"
	"rentport/core/internal/authpw"
	"rentport/core/internal/blob"
	"rentport/core/internal/config"
	"rentport/core/internal/email"
	"rentport/core/internal/feed"
	"rentport/core/internal/gateway"
	"rentport/core/internal/session"
	"rentport/core/internal/store"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	changeFeed, err := feed.NewRedisFeed(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer changeFeed.Close()

	sessionStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis session store failed: %v", err)
	}
	defer sessionStore.Close()

	uploads, err := blob.NewMinIOUploader(ctx, blob.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		PublicURL: cfg.MinIOPublicURL,
	})
	if err != nil {
		log.Fatalf("object store connection failed: %v", err)
	}

	var mailer *email.Service
	if cfg.SMTPHost != "" {
		log.Printf("Email notifications enabled via %s", cfg.SMTPHost)
		mailer = email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
	}

	provider := authpw.NewService(dataStore, sessionStore, cfg.JWTSecret, cfg.SessionTTL)
	sessions := session.NewManager(provider, dataStore)
	gw := gateway.New(dataStore, changeFeed, uploads)
	core := app.NewCore(sessions, gw, dataStore, changeFeed, mailer)

	sessions.Open(ctx)
	defer sessions.Close()
	core.Open(ctx)
	defer core.Close()

	log.Printf("RentPort core running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutting down")
}
