package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gmottola00/Tickup/database"
	"github.com/gmottola00/Tickup/handlers"
	"github.com/gmottola00/Tickup/logger"
	"github.com/gmottola00/Tickup/services"
)

func main() {
	envMissing := godotenv.Load() != nil

	logger.Initialize(logger.Configuration{
		Level:   os.Getenv("LOG_LEVEL"),
		Console: true,
		JSON:    os.Getenv("LOG_JSON") == "true",
	})
	if envMissing {
		logger.Warn("no .env file found, reading environment variables directly")
	}

	db, err := database.Connect()
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	walletService := services.NewWalletService(db)
	poolService := services.NewPoolService(db)
	ticketService := services.NewTicketService(db)
	purchaseService := services.NewPurchaseService(db, ticketService)
	tournamentService := services.NewTournamentService(db, walletService)

	sched, err := tournamentService.StartSweepScheduler()
	if err != nil {
		logger.Fatal("sweep scheduler failed to start", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName: "tickup",
	})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupWalletRoutes(app, walletService)
	handlers.SetupPoolRoutes(app, poolService, ticketService)
	handlers.SetupPurchaseRoutes(app, purchaseService)
	handlers.SetupTournamentRoutes(app, tournamentService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + port); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()
	logger.Info("server running", zap.String("port", port))

	<-ctx.Done()
	logger.Info("shutting down")
	if err := sched.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", zap.Error(err))
	}
	if err := app.Shutdown(); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
