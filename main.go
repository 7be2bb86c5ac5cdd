package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v76"

	"github.com/wavelinehq/bookline-backend/config"
	"github.com/wavelinehq/bookline-backend/database"
	"github.com/wavelinehq/bookline-backend/internal/handlers"
	"github.com/wavelinehq/bookline-backend/internal/models"
	"github.com/wavelinehq/bookline-backend/internal/routes"
	"github.com/wavelinehq/bookline-backend/internal/services"
	"github.com/wavelinehq/bookline-backend/internal/storage"
	"github.com/wavelinehq/bookline-backend/internal/utils"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		if err = godotenv.Load("environments/.env.development"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	config.LoadConfig()
	utils.InitializeLogger()
	defer utils.GetLogger().Sync()

	cfg := config.AppConfig

	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		log.Println("⚠️  Twilio credentials not found - WhatsApp features will be limited")
	}

	// Initialize storage
	var store storage.Store

	switch cfg.StoreDriver {
	case "memory":
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	case "postgres":
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		if err := database.DB.AutoMigrate(
			&models.Slot{},
			&models.Booking{},
		); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		dbStore, err := storage.NewDatabaseStore(database.DB)
		if err != nil {
			log.Fatal("Failed to initialize database store:", err)
		}
		store = dbStore
		log.Println("✅ Using PostgreSQL database storage")
	default:
		fileStore := storage.NewFileStore(cfg.DataDir)
		store = fileStore
		log.Printf("✅ Using file storage in %s/", cfg.DataDir)
	}

	storage.SetStore(store)

	// Stripe client key is process-wide
	stripe.Key = cfg.StripeSecretKey

	// Initialize Twilio service
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio service not initialized: %v", err)
	} else {
		services.SetTwilioService(twilioService)
		log.Println("✅ Twilio service initialized")
	}

	// Initialize booking pipeline
	stripeService := services.NewStripeService(cfg.BaseURL, cfg.BookingPrice, cfg.BookingCurrency)
	bookingService := services.NewBookingService(store, stripeService)
	conversationState := services.NewConversationState()
	services.SetConversationState(conversationState)

	ctx := context.Background()
	agentService, err := services.NewAgentService(ctx, cfg.GeminiAPIKey, bookingService, conversationState)
	if err != nil {
		log.Fatal("Failed to initialize booking agent:", err)
	}
	defer agentService.Close()
	log.Println("✅ Booking agent initialized")

	var transcriber services.Transcriber
	if cfg.GoogleCredentialsFile != "" {
		transcriber = services.NewGoogleTranscriber(cfg.GoogleCredentialsFile)
		log.Println("✅ Voice note transcription enabled")
	} else {
		log.Println("⚠️  GOOGLE_CREDENTIALS_FILE not set - voice notes disabled")
	}

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "BookLine Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
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
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	var notifier services.Notifier
	if twilioService != nil {
		notifier = twilioService
	}

	routes.SetupRoutes(app, &routes.Handlers{
		Health:   handlers.NewHealthHandler("1.0.0"),
		Booking:  handlers.NewBookingHandler(store, bookingService),
		WhatsApp: handlers.NewWhatsAppHandler(agentService, transcriber),
		Stripe:   handlers.NewStripeHandler(bookingService, stripeService, notifier),
	})

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 BookLine Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", cfg.StoreDriver)
	log.Printf("🌍 Environment: %s", config.GetEnv())
	log.Printf("📱 WhatsApp: %s", whatsAppStatus(cfg.TwilioAccountSID))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func whatsAppStatus(twilioSID string) string {
	if twilioSID == "" {
		return "Not configured"
	}
	return "Configured"
}
