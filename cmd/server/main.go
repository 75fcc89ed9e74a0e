// @title           Critvue Wizard API
// @version         1.0.0
// @description     Backend for the Critvue review-request creation wizard. Sequences creators through the multi-step flow, persists drafts on the marketplace, stores attachments, and hands expert requests off to payment.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"log"
	"net/http"

	"critvue-backend/internal/config"
	"critvue-backend/internal/critvue"
	"critvue-backend/internal/database"
	"critvue-backend/internal/handlers"
	"critvue-backend/internal/middleware"
	"critvue-backend/internal/payments"
	"critvue-backend/internal/services"
	"critvue-backend/internal/store"
	"critvue-backend/internal/supabase"
	"critvue-backend/internal/wizard"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Resolve the active flow variant
	flow, err := wizard.FlowFor(wizard.Variant(cfg.WizardFlow))
	if err != nil {
		log.Fatalf("Failed to resolve wizard flow: %v", err)
	}
	log.Printf("Wizard flow: %s (%d steps)", flow.Variant, flow.TotalSteps())

	// Marketplace API client
	critvueClient := critvue.NewClient(cfg.CritvueAPIBaseURL, cfg.CritvueAPIKey)

	// Payment provider client (expert reviews only)
	var paymentsClient *payments.Client
	if cfg.PaymentAPIBaseURL != "" {
		paymentsClient = payments.NewClient(cfg.PaymentAPIBaseURL, cfg.PaymentAPIKey)
	} else {
		log.Println("Warning: PAYMENT_API_BASE_URL not set. Expert review submissions will fail.")
	}

	// Supabase clients
	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	realtimeClient := supabase.NewRealtimeClient(supabaseClient)

	// Funnel events database (optional)
	var dbClient *database.Client
	if cfg.DatabaseURL != "" {
		dbClient, err = database.NewClient(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Failed to initialize database client: %v", err)
			log.Println("Wizard funnel events will not be recorded.")
			dbClient = nil
		} else {
			defer dbClient.Close()

			migrator, err := database.NewMigrator(cfg.DatabaseURL)
			if err != nil {
				log.Printf("Warning: Failed to initialize migrator: %v", err)
			} else {
				defer migrator.Close()
				if err := migrator.Run(); err != nil {
					log.Printf("Warning: Migration failed: %v", err)
				} else {
					log.Println("Migrations completed successfully")
				}
			}
		}
	} else {
		log.Println("Warning: DATABASE_URL not set. Wizard funnel events will not be recorded.")
	}

	// Session store: redis when configured, in-process otherwise
	var sessionStore store.SessionStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		sessionStore = store.NewRedisStore(redis.NewClient(opts))
	} else {
		log.Println("Warning: REDIS_URL not set. Sessions are held in process memory.")
		sessionStore = store.NewMemoryStore()
	}

	// Wizard service and handlers
	wizardService := services.NewWizardService(
		flow, sessionStore, critvueClient, paymentsClient,
		storageClient, dbClient, realtimeClient,
	)

	sessionsHandler := handlers.NewSessionsHandler(wizardService)
	attachmentsHandler := handlers.NewAttachmentsHandler(wizardService)
	webhookHandler := handlers.NewWebhookHandler(cfg, wizardService)

	// Setup router
	router := gin.Default()

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	api.POST("/wizard/sessions", sessionsHandler.StartSession)
	api.GET("/wizard/sessions/:session_id", sessionsHandler.GetSession)
	api.PATCH("/wizard/sessions/:session_id/draft", sessionsHandler.UpdateDraft)
	api.POST("/wizard/sessions/:session_id/advance", sessionsHandler.Advance)
	api.POST("/wizard/sessions/:session_id/back", sessionsHandler.Back)
	api.POST("/wizard/sessions/:session_id/submit", sessionsHandler.Submit)
	api.DELETE("/wizard/sessions/:session_id", sessionsHandler.CancelSession)
	api.GET("/wizard/sessions/:session_id/events", sessionsHandler.SessionEvents)
	api.POST("/wizard/sessions/:session_id/attachments", attachmentsHandler.Upload)

	// Webhook (no auth, uses shared token)
	router.POST("/api/v1/webhooks/payment", webhookHandler.HandlePaymentWebhook)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
