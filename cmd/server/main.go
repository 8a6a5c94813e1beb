package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountrepo "taskhub/backend/internal/account/repository"
	"taskhub/backend/internal/audit"
	auditrepo "taskhub/backend/internal/audit/repository"
	authservice "taskhub/backend/internal/auth/service"
	"taskhub/backend/internal/config"
	"taskhub/backend/internal/db"
	"taskhub/backend/internal/event"
	"taskhub/backend/internal/event/producer"
	"taskhub/backend/internal/security"
	"taskhub/backend/internal/server"
	sessionrepo "taskhub/backend/internal/session/repository"
	"taskhub/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "taskhub-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	accounts := accountrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)
	auditor := audit.NewLogger(audits)
	throttle := audit.NewThrottle(audits, cfg.ThrottleWindow(), cfg.LoginThrottleMaxPerIP, cfg.LoginThrottleMaxPerUser)

	var events event.Emitter
	if p := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.SecurityEventTopic); p != nil {
		defer p.Close()
		events = p
	}

	auth := authservice.NewAuthService(
		accounts, sessions, hasher, tokens,
		auditor, events, throttle,
		cfg.RefreshTTL(), cfg.MaxActiveSessions,
	)

	router := server.NewRouter(server.Deps{
		Auth:     auth,
		Sessions: sessions,
		Tokens:   tokens,
		DB:       conn,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if events != nil {
		time.Sleep(event.ShutdownDrainDuration)
	}
	log.Println("HTTP server stopped")
}
