package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/beardfriends/payments-backend/config"
	"github.com/beardfriends/payments-backend/gateway"
	"github.com/beardfriends/payments-backend/handlers"
	"github.com/beardfriends/payments-backend/models"
	"github.com/beardfriends/payments-backend/notifier"
	"github.com/beardfriends/payments-backend/reconcile"
	"github.com/beardfriends/payments-backend/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	if cfg.WebhookSecret == "" || cfg.GatewayAPIKey == "" {
		log.Fatal("STRIPE_WEBHOOK_SECRET and STRIPE_SECRET_KEY must be set")
	}

	// Database connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Payment{}, &models.WebhookEvent{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Optional fast-path dedup
	var dedup reconcile.Deduper
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
		log.Println("Redis connected")
		dedup = store.NewRedisDeduper(rdb, 0)
	}

	notify := buildNotifier(cfg)

	svc := reconcile.NewService(reconcile.Config{
		WebhookSecret: cfg.WebhookSecret,
		Ledger:        store.NewGorm(db),
		Users:         store.NewGormUsers(db),
		Events:        store.NewGormEventLog(db),
		Dedup:         dedup,
		Charges:       gateway.NewClient(cfg.GatewayAPIKey, cfg.GatewayAPIBase),
		Notifier:      notify,
	})

	paymentHandler := handlers.NewPaymentHandler(db)
	webhookHandler := handlers.NewWebhookHandler(svc)

	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET, POST, OPTIONS",
		AllowHeaders: "Content-Type, Authorization",
	}))

	app.Get("/health", paymentHandler.Health)
	app.Get("/payments", paymentHandler.ListPayments)
	app.Get("/payments/:id", paymentHandler.GetPayment)
	app.Post("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

func buildNotifier(cfg config.Config) reconcile.Notifier {
	switch cfg.Notifier {
	case "kafka":
		n, err := notifier.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("Failed to start Kafka notifier: %v", err)
		}
		return n
	case "smtp":
		if cfg.SMTPAddr == "" || cfg.SMTPFrom == "" {
			log.Fatal("SMTP_ADDR and SMTP_FROM must be set for the smtp notifier")
		}
		return notifier.NewSMTP(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword)
	default:
		return notifier.Log{}
	}
}
