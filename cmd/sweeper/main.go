// sweeper periodically deletes expired sessions and confirmation codes.
// Run alongside the server; SWEEP_INTERVAL controls the cadence.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogger-platform/internal/config"
	confirmrepo "blogger-platform/internal/confirmation/repository"
	"blogger-platform/internal/db"
	sessionrepo "blogger-platform/internal/session/repository"
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

	sessions := sessionrepo.NewPostgresRepository(conn)
	codes := confirmrepo.NewPostgresRepository(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("sweeper: shutting down...")
		cancel()
	}()

	interval := cfg.SweeperInterval()
	log.Printf("sweeper: running every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper: stopped")
			return
		case <-ticker.C:
			sweep(ctx, sessions, codes)
		}
	}
}

func sweep(ctx context.Context, sessions *sessionrepo.PostgresRepository, codes *confirmrepo.PostgresRepository) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	now := time.Now().UTC()

	n, err := sessions.DeleteExpired(sweepCtx, now)
	if err != nil {
		log.Printf("sweeper: sessions: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: removed %d expired sessions", n)
	}

	n, err = codes.DeleteExpired(sweepCtx, now)
	if err != nil {
		log.Printf("sweeper: codes: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: removed %d expired confirmation codes", n)
	}
}
