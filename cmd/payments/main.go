package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"go.uber.org/zap"

	"github.com/Pourna2598/ecommerce-microservices/internal/clients"
	"github.com/Pourna2598/ecommerce-microservices/internal/config"
	"github.com/Pourna2598/ecommerce-microservices/internal/eventbus"
	"github.com/Pourna2598/ecommerce-microservices/internal/gateway"
	"github.com/Pourna2598/ecommerce-microservices/internal/handlers"
	"github.com/Pourna2598/ecommerce-microservices/internal/repository"
	"github.com/Pourna2598/ecommerce-microservices/internal/server"
	"github.com/Pourna2598/ecommerce-microservices/internal/service"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const serviceName = "payment-service"

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting payment service", zap.Int("port", cfg.Payments.Port))

	db, err := initDatabase(cfg.PaymentsDB, "migrations/payments", logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	bus := eventbus.New(cfg.RabbitMQ, logger)
	if err := bus.Connect(); err != nil {
		logger.Warn("event bus unavailable at startup, reconnecting in background", zap.Error(err))
	}
	defer bus.Close()

	paymentRepo := repository.NewPostgresPaymentRepository(db, logger)
	orderClient := clients.NewHTTPOrderClient(cfg.OrderService, serviceName, cfg.ServiceSecret, logger)
	processor := gateway.NewSimulatedProcessor(logger)

	paymentService := service.NewPaymentService(
		paymentRepo,
		orderClient,
		processor,
		bus,
		logger,
	)

	h := handlers.NewPaymentHandlers(paymentService, logger)
	srv := server.NewPaymentServer(cfg, h, logger)

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

func initDatabase(cfg config.DatabaseConfig, migrationsDir string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, cfg.Name, driver)
	if err != nil {
		return nil, err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, err
	}

	logger.Info("database ready", zap.String("host", cfg.Host), zap.String("name", cfg.Name))
	return db, nil
}
