// seed inserts a confirmed development account for local testing.
// Idempotent: skips the insert if the dev account (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"blogger-platform/internal/config"
	"blogger-platform/internal/db"
	"blogger-platform/internal/security"
	userdomain "blogger-platform/internal/user/domain"
	userrepo "blogger-platform/internal/user/repository"
)

const (
	devLogin    = "dev"
	devEmail    = "dev@example.com"
	devPassword = "password123"
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

	users := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByLoginOrEmail(ctx, devEmail)
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

	u := &userdomain.User{
		ID:           uuid.NewString(),
		Login:        devLogin,
		Email:        devEmail,
		PasswordHash: passwordHash,
		Confirmed:    true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("create dev user: %v", err)
	}

	log.Println("Seed completed successfully.")
	log.Printf("Dev login: %s / %s", devEmail, devPassword)
}
