package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Ananth-NQI/choptime-backend/database"
	"github.com/Ananth-NQI/choptime-backend/internal/config"
	"github.com/Ananth-NQI/choptime-backend/internal/handlers"
	"github.com/Ananth-NQI/choptime-backend/internal/jobs"
	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/routes"
	"github.com/Ananth-NQI/choptime-backend/internal/services"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		config.LoadDotEnv()
	}

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(cfg.Logging, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	phones := services.NewPhoneNormalizer(cfg.Ordering.CountryCode, cfg.Ordering.MobilePrefix)
	messenger := services.NewMessenger(cfg)

	routing := services.NewDeliveryRouting(phones, cfg.Notify.DeliveryPhones, cfg.Notify.Towns)
	admins := phones.NormalizeAll(cfg.Notify.AdminPhones)
	notifier := services.NewNotifier(messenger, admins, routing)
	if len(admins) == 0 {
		slog.Warn("⚠️  ADMIN_PHONE not set - orders will only reach delivery riders")
	}

	// Admins and riders may always issue status commands
	privileged := append(append([]string{}, cfg.Notify.PrivilegedSenders...), admins...)
	privileged = phones.NormalizeAll(append(privileged, routing.All()...))

	var sources []services.CatalogSource
	if cfg.Catalog.MenuFile != "" {
		sources = append(sources, services.NewYAMLMenuSource(cfg.Catalog.MenuFile))
	}
	sources = append(sources, services.NewStoreMenuSource(store))
	catalog := services.NewCatalog(sources...)

	sessions := services.NewMemorySessionStore(
		services.WithSessionTTL(cfg.Ordering.SessionTTL),
		services.WithExpiryHook(func(ctx context.Context, s *models.Session) {
			notifier.NotifyUser(ctx, s.Sender, services.SessionExpiredText())
		}),
	)
	sessions.StartSweeper(ctx, sweepInterval(cfg.Ordering.SessionTTL))

	refs := services.NewReferenceGenerator(cfg.Ordering.ReferencePrefix, store)
	finalizer := services.NewOrderFinalizer(store, refs, notifier, cfg.Ordering.Currency)
	engine := services.NewConversationEngine(services.EngineConfig{
		Sessions:  sessions,
		Catalog:   catalog,
		Phones:    phones,
		Finalizer: finalizer,
		Store:     store,
		Notifier:  notifier,
		Greetings: cfg.Ordering.Greetings,
		Currency:  cfg.Ordering.Currency,
	})
	commands := services.NewCommandRouter(privileged, store, notifier, services.TransitionPolicy(cfg.Ordering.StatusPolicy))
	relay := services.NewStorefrontRelay(notifier)
	whatsappService := services.NewWhatsAppService(phones, commands, relay, engine)

	reminder := jobs.NewPendingOrderReminder(store, notifier, cfg.Jobs.PendingReminderInterval, cfg.Jobs.PendingReminderAge)
	reminder.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName: "ChopTime Backend v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Health:    handlers.NewHealthHandler(version, store),
		WhatsApp:  handlers.NewWhatsAppHandler(whatsappService, cfg.WhatsApp.VerifyToken),
		Order:     handlers.NewOrderHandler(finalizer, phones),
		Admin:     handlers.NewAdminHandler(store, commands, catalog, sessions),
		Analytics: handlers.NewAnalyticsHandler(store),
	}, cfg)

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("🛑 Gracefully shutting down...")
		reminder.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("🚀 ChopTime Backend starting",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"storage", storageType(cfg),
		"whatsapp_provider", cfg.WhatsApp.Provider,
		"status_policy", cfg.Ordering.StatusPolicy,
		"admins", len(admins),
		"delivery_default", len(routing.Default),
		"towns", len(routing.Towns),
	)

	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Database.UseMemoryStore {
		slog.Warn("⚠️  Using in-memory storage (not for production!)")
		return storage.NewMemoryStore(), nil
	}

	slog.Info("📦 Connecting to database...", "driver", cfg.Database.Driver)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	slog.Info("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	slog.Info("✅ Database migrations completed!")

	return storage.NewDatabaseStore(db), nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	return interval
}

func storageType(cfg *config.Config) string {
	if cfg.Database.UseMemoryStore {
		return "memory"
	}
	return cfg.Database.Driver
}
