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
	"github.com/fides-protocol/fides/crypto"
	"github.com/fides-protocol/fides/db"
	"github.com/fides-protocol/fides/identity"
	"github.com/fides-protocol/fides/middleware"
	"github.com/fides-protocol/fides/models"
	"github.com/fides-protocol/fides/registry"
)

// drainWindow is how long the registry service keeps accepting
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

	self, err := loadServiceIdentity(cfg)
	if err != nil {
		log.Fatalf("Failed to load service identity: %v", err)
	}

	store := registry.NewStore(db.DB)

	app := fiber.New(fiber.Config{
		AppName:      "fides-registry",
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

	handlers := &api.RegistryHandlers{
		Store: store,
		Self:  self,
		DB:    db.DB,
	}
	api.SetupRegistryRoutes(app, handlers, cfg)

	startupMessage(cfg, self.DID)

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
	log.Println("Registry service stopped")
}

// loadServiceIdentity loads the registry service's own agent identity
// named by cfg.ActiveIdentifier, so it can serve its own
// /.well-known/fides.json discovery document. When ActiveIdentifier is
// empty or its key pair cannot be loaded, it generates and persists a
// new identity on that start.
func loadServiceIdentity(cfg *config.Config) (models.WellKnownDocument, error) {
	ks, err := identity.NewDiskKeystore(cfg.KeyDir, "")
	if err != nil {
		return models.WellKnownDocument{}, err
	}

	id := cfg.ActiveIdentifier
	if id != "" {
		kp, err := ks.Load(id)
		if err == nil {
			return models.WellKnownDocument{DID: id, PublicKey: crypto.HexEncode(kp.PublicKey[:])}, nil
		}
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return models.WellKnownDocument{}, err
	}
	did, err := identity.Derive(kp.PublicKey[:])
	if err != nil {
		return models.WellKnownDocument{}, err
	}
	if err := ks.Save(did, kp); err != nil {
		return models.WellKnownDocument{}, err
	}
	return models.WellKnownDocument{DID: did, PublicKey: crypto.HexEncode(kp.PublicKey[:])}, nil
}

func startupMessage(cfg *config.Config, did string) {
	fmt.Println("┌─────────────────────────────────────────────────────┐")
	fmt.Println("│                   fides registry                    │")
	fmt.Println("├─────────────────────────────────────────────────────┤")
	fmt.Println("│ Identity discovery for autonomous agents             │")
	fmt.Println("├─────────────────────────────────────────────────────┤")
	fmt.Printf("│ HTTP Server running on port %-24s │\n", cfg.ServerPort)
	fmt.Printf("│ Service DID: %-38s │\n", did)
	fmt.Println("├─────────────────────────────────────────────────────┤")
	fmt.Printf("│ Environment: %-38s │\n", cfg.Environment)
	fmt.Println("└─────────────────────────────────────────────────────┘")
}
