// seed inserts development sample accounts for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	accountrepo "taskhub/backend/internal/account/repository"
	"taskhub/backend/internal/config"
	"taskhub/backend/internal/db"
	"taskhub/backend/internal/security"
)

const (
	devEmail        = "dev@example.com"
	devPassword     = "password123"
	freelancerEmail = "freelancer@example.com"
	unverifiedEmail = "pending@example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	accounts := accountrepo.NewPostgresRepository(conn)

	existing, err := accounts.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	rows := []struct {
		email    string
		role     string
		verified bool
	}{
		{devEmail, "client", true},
		{freelancerEmail, "freelancer", true},
		{unverifiedEmail, "client", false},
	}
	for _, row := range rows {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO accounts (id, email, password_hash, role, verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), row.email, passwordHash, row.role, row.verified, now,
		)
		if err != nil {
			log.Fatalf("create account %s: %v", row.email, err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", devEmail, devPassword)
	fmt.Printf("Freelancer login: %s / %s\n", freelancerEmail, devPassword)
	fmt.Printf("Unverified login (blocked): %s / %s\n", unverifiedEmail, devPassword)
}
