package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/threadkart/threadkart-backend-go/config"
	"github.com/threadkart/threadkart-backend-go/database"
	"github.com/threadkart/threadkart-backend-go/handlers"
	"github.com/threadkart/threadkart-backend-go/inventory"
	"github.com/threadkart/threadkart-backend-go/logger"
	"github.com/threadkart/threadkart-backend-go/metrics"
	"github.com/threadkart/threadkart-backend-go/notify"
	"github.com/threadkart/threadkart-backend-go/orders"
	"github.com/threadkart/threadkart-backend-go/payment"
	"github.com/threadkart/threadkart-backend-go/routes"
)

func main() {
	// Load environment variables
	config.LoadEnv()

	zapLogger, err := logger.Init(&logger.Config{
		Level:       config.GetEnv("LOG_LEVEL", "info"),
		Environment: config.GetEnv("APP_ENV", "development"),
		ServiceName: "threadkart-backend",
	})
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	metrics.Register()

	// Initialize Echo
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Connect to MongoDB
	if err := database.ConnectDB(); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	zapLogger.Info("connected to MongoDB")

	// Notifications: SMTP when configured, discard otherwise.
	var mail notify.Dispatcher = notify.Noop{}
	if host := config.GetEnv("SMTP_HOST", ""); host != "" {
		mail = notify.NewMailer(notify.MailerConfig{
			Host:     host,
			Port:     config.GetEnvInt("SMTP_PORT", 587),
			Username: config.GetEnv("SMTP_USER", ""),
			Password: config.GetEnv("SMTP_PASS", ""),
			From:     config.GetEnv("MAIL_FROM", "no-reply@threadkart.in"),
		})
	}

	// Fulfillment core
	ledger := inventory.NewLedger(database.DB, zapLogger)
	factory := orders.NewFactory(database.DB.Collection("orders"), ledger, mail, zapLogger)
	orderService := orders.NewService(database.DB, mail, zapLogger)
	gateway := payment.NewGateway(
		config.GetEnv("RAZORPAY_KEY_ID", ""),
		config.GetEnv("RAZORPAY_KEY_SECRET", ""),
		zapLogger,
	)

	orderHandler := handlers.NewOrderHandler(factory, orderService, zapLogger)
	paymentHandler := handlers.NewPaymentHandler(gateway, factory, zapLogger)

	routes.SetupRoutes(e, orderHandler, paymentHandler)

	port := config.GetEnv("PORT", "3000")
	e.Logger.Fatal(e.Start(":" + port))
}
