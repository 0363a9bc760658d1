package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/fides-protocol/fides/api"
	"github.com/fides-protocol/fides/config"
	"github.com/fides-protocol/fides/db"
	"github.com/fides-protocol/fides/middleware"
	"github.com/fides-protocol/fides/registry"
	"github.com/fides-protocol/fides/replay"
	"github.com/fides-protocol/fides/trust"
)

// drainWindow is how long the trust graph service keeps accepting
// in-flight requests after it starts rejecting new ones.
const drainWindow = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default environment variables")
	}

	cfg := config.Load()

	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	regStore := registry.NewStore(db.DB)
	trustStore := trust.NewStore(db.DB)
	resolver := registry.NewResolver(cfg.DiscoveryURL)
	breaker := registry.NewCircuitBreaker()
	nonceStore := replay.New(replay.DefaultTTL)
	defer nonceStore.Close()

	service := trust.NewService(regStore, trustStore, resolver, breaker)

	app := fiber.New(fiber.Config{
		AppName:      "fides-trust-graph",
		ErrorHandler: api.ErrorHandler,
		ReadTimeout:  time.Duration(cfg.ServerTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.ServerTimeout) * time.Second,
	})
	app.Use(recover.New())

	var (
		draining   bool
		drainMutex sync.RWMutex
	)
	app.Use(middleware.ShuttingDown(&draining, &drainMutex))

	handlers := &api.TrustHandlers{
		Service:  service,
		Registry: regStore,
		DB:       db.DB,
	}
	api.SetupTrustRoutes(app, handlers, cfg, nonceStore, resolver, breaker)

	startupMessage(cfg)

	go func() {
		if err := app.Listen(cfg.ServerHost + ":" + cfg.ServerPort); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, draining connections...")
	drainMutex.Lock()
	draining = true
	drainMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), drainWindow)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Trust graph service stopped")
}

func startupMessage(cfg *config.Config) {
	fmt.Println("┌─────────────────────────────────────────────────────┐")
	fmt.Println("│                 fides trust graph                   │")
	fmt.Println("├─────────────────────────────────────────────────────┤")
	fmt.Println("│ Trust attestations and reputation for agents         │")
	fmt.Println("├─────────────────────────────────────────────────────┤")
	fmt.Printf("│ HTTP Server running on port %-24s │\n", cfg.ServerPort)
	fmt.Printf("│ Discovery registry: %-32s │\n", cfg.DiscoveryURL)
	fmt.Println("├─────────────────────────────────────────────────────┤")
	fmt.Printf("│ Environment: %-38s │\n", cfg.Environment)
	fmt.Println("└─────────────────────────────────────────────────────┘")
}
