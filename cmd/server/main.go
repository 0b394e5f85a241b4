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

	"docsync/internal/api"
	"docsync/internal/auth"
	"docsync/internal/collab"
	"docsync/internal/config"
	"docsync/internal/db"
	"docsync/internal/presence"
	"docsync/internal/repository"
	"docsync/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting docsync collaboration server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Tracing first so everything below is covered.
	jaegerShutdown, err := telemetry.InitJaeger("docsync", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	// The presence registry is injected into the gateway so the backend can
	// be swapped per deployment: in-memory for one relay process, Redis when
	// presence is shared across processes.
	var registry presence.Registry
	switch cfg.PresenceBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		registry = presence.NewRedisRegistry(rdb)
		log.Println("✓ Redis presence registry connected")
	default:
		registry = presence.NewMemoryRegistry()
		log.Println("✓ In-memory presence registry initialized")
	}

	gateway := collab.NewGateway(registry, collab.Config{
		LeakCompatible: cfg.PresenceLeakCompat,
		SendBuffer:     cfg.SessionSendBuffer,
		IdleTimeout:    cfg.SessionIdleTimeout,
	})
	if cfg.PresenceLeakCompat {
		log.Println("⚠️  Presence leak-compatible mode enabled: disconnects will not clean up presence")
	}

	gatewayCtx, stopGateway := context.WithCancel(context.Background())
	go gateway.Run(gatewayCtx)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	wsHandler := collab.NewHandler(gateway, issuer)

	docRepo := repository.NewDocumentRepository(database.DB)
	userRepo := repository.NewUserRepository(database.DB)

	handler := api.NewHandler(docRepo, userRepo, issuer, wsHandler)
	router := api.SetupRoutes(handler, issuer)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("   POST   /api/auth/login            - Obtain a token")
		log.Printf("   POST   /api/documents             - Create document")
		log.Printf("   GET    /api/documents             - List documents")
		log.Printf("   GET    /api/documents/:id         - Get snapshot")
		log.Printf("   PUT    /api/documents/:id/title   - Rename document")
		log.Printf("   PUT    /api/documents/:id/content - Save snapshot")
		log.Printf("   GET    /ws?token=...              - Collaboration WebSocket")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	stopGateway()

	log.Println("✓ Server shutdown complete")
}
