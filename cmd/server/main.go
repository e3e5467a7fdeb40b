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

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"blogger-platform/internal/audit"
	auditrepo "blogger-platform/internal/audit/repository"
	authhandler "blogger-platform/internal/auth/handler"
	authsvc "blogger-platform/internal/auth/service"
	"blogger-platform/internal/config"
	confirmrepo "blogger-platform/internal/confirmation/repository"
	confirmsvc "blogger-platform/internal/confirmation/service"
	"blogger-platform/internal/db"
	healthhandler "blogger-platform/internal/health/handler"
	"blogger-platform/internal/notifier"
	"blogger-platform/internal/ratelimit"
	"blogger-platform/internal/security"
	"blogger-platform/internal/server"
	sessionhandler "blogger-platform/internal/session/handler"
	sessionrepo "blogger-platform/internal/session/repository"
	"blogger-platform/internal/telemetry"
	telemetryotel "blogger-platform/internal/telemetry/otel"
	"blogger-platform/internal/telemetry/producer"
	userrepo "blogger-platform/internal/user/repository"
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

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey,
		cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())

	var mail notifier.Notifier = notifier.LogNotifier{}
	if cfg.PostmarkServerToken != "" {
		pm, err := notifier.NewPostmarkNotifier(notifier.PostmarkConfig{
			ServerToken:  cfg.PostmarkServerToken,
			AccountToken: cfg.PostmarkAccountToken,
			SenderEmail:  cfg.EmailFrom,
			SupportEmail: cfg.EmailSupport,
		})
		if err != nil {
			log.Fatalf("postmark: %v", err)
		}
		mail = pm
	}

	var guard ratelimit.Guard
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		guard = ratelimit.NewRedisGuard(client, cfg.AttemptLimit, cfg.Window())
		log.Printf("ratelimit: redis counters at %s", cfg.RedisAddr)
	} else {
		mg := ratelimit.NewMemoryGuard(cfg.AttemptLimit, cfg.Window())
		defer mg.Close()
		guard = mg
	}

	providers, err := telemetryotel.NewProviders(context.Background(), cfg.OTLPEndpoint, "blogger-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	var emitter telemetry.Emitter
	if kafkaProducer != nil {
		emitter = kafkaProducer
		defer kafkaProducer.Close()
	}

	confirmations := confirmsvc.NewService(confirmrepo.NewPostgresRepository(conn), mail, cfg.ConfirmURLBase)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(conn))
	svc := authsvc.NewService(
		userrepo.NewPostgresRepository(conn),
		sessionrepo.NewPostgresRepository(conn),
		confirmations,
		tokens,
		security.NewHasher(cfg.BcryptCost),
		auditor,
		authsvc.Config{ConfirmationTTL: cfg.ConfirmationTTL(), RecoveryTTL: cfg.RecoveryTTL()},
	)

	handler := server.NewHandler(server.Deps{
		Auth:     authhandler.NewHandler(svc, cfg.Env == "production"),
		Sessions: sessionhandler.NewHandler(svc),
		Health:   healthhandler.NewHandler(conn),
		Guard:    guard,
		Refresh:  svc,
		Tokens:   tokens,
		Emitter:  emitter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(handler, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits drain before tearing down exporters.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
