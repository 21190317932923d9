package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/exrev201-arch/freshed-fulfillment/internal/app/delivery"
	"github.com/exrev201-arch/freshed-fulfillment/internal/app/orders"
	"github.com/exrev201-arch/freshed-fulfillment/internal/app/payments"
	"github.com/exrev201-arch/freshed-fulfillment/internal/archive"
	"github.com/exrev201-arch/freshed-fulfillment/internal/config"
	"github.com/exrev201-arch/freshed-fulfillment/internal/gateway"
	http_delivery "github.com/exrev201-arch/freshed-fulfillment/internal/handler/http/delivery"
	http_orders "github.com/exrev201-arch/freshed-fulfillment/internal/handler/http/orders"
	http_payments "github.com/exrev201-arch/freshed-fulfillment/internal/handler/http/payments"
	kafka_infra "github.com/exrev201-arch/freshed-fulfillment/internal/infrastructure/kafka"
	"github.com/exrev201-arch/freshed-fulfillment/internal/locker"
	"github.com/exrev201-arch/freshed-fulfillment/internal/outbox"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/order_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/outbox_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/payment_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/tracker_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store/postgres"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fulfillmentd",
	Short: "Order fulfillment coordinator for the Freshed grocery platform",
	Long: `fulfillmentd coordinates grocery order fulfillment: order lifecycle,
mobile-money payment collection with webhook reconciliation, and
GPS delivery tracking, exposed over a single HTTP API.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		run(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	appLogger.Info("Fulfillment service starting...")

	recordStore, closeStore := openStore(cfg, appLogger)
	defer closeStore()

	orderRepository := order_repo.NewOrderRepository(recordStore)
	paymentRepository := payment_repo.NewPaymentRepository(recordStore)
	trackerRepository := tracker_repo.NewTrackerRepository(recordStore)
	outboxRepository := outbox_repo.NewOutboxRepository(recordStore)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if cfg.Kafka.Enabled {
		producer := kafka_infra.NewProducer(cfg.Kafka.Brokers, appLogger.With(zap.String("component", "KafkaProducer")))
		defer func() {
			if err := producer.Close(); err != nil {
				appLogger.Error("Error closing Kafka producer", zap.Error(err))
			}
		}()

		processor := outbox.NewProcessor(
			outboxRepository,
			producer,
			cfg.Outbox.PollInterval,
			cfg.Outbox.BatchSize,
			appLogger.With(zap.String("component", "OutboxProcessor")),
		)
		go processor.Start(rootCtx)
	} else {
		appLogger.Info("Kafka disabled; outbox messages will accumulate as pending.")
	}

	var gatewayClient gateway.Client
	if cfg.Gateway.DemoMode {
		appLogger.Warn("Payment gateway running in DEMO mode; no real provider calls will be made.")
		gatewayClient = gateway.NewDemoClient(appLogger.With(zap.String("component", "DemoGateway")))
	} else {
		gatewayClient = gateway.NewHTTPClient(
			cfg.Gateway.BaseURL,
			cfg.Gateway.APIKey,
			cfg.Gateway.Timeout,
			appLogger.With(zap.String("component", "PaymentGateway")),
		)
	}

	var locationArchiver archive.Archiver
	if cfg.Archive.Enabled {
		s3Archiver, err := archive.NewS3Archiver(rootCtx, cfg.Archive.Region, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			appLogger.Fatal("Failed to create S3 location archiver", zap.Error(err))
		}
		locationArchiver = s3Archiver
		appLogger.Info("Location history archiver enabled",
			zap.String("bucket", cfg.Archive.Bucket),
			zap.String("prefix", cfg.Archive.Prefix))
	}

	locks := locker.New()

	orderService := orders.NewOrderService(
		orderRepository, trackerRepository, outboxRepository,
		recordStore, locks, cfg.Kafka.EventsTopic,
		appLogger.With(zap.String("component", "OrderService")),
	)
	paymentService := payments.NewPaymentService(
		orderRepository, paymentRepository, outboxRepository,
		gatewayClient, locks, cfg.Gateway.Provider, cfg.Kafka.EventsTopic,
		appLogger.With(zap.String("component", "PaymentService")),
	)
	deliveryService := delivery.NewDeliveryService(
		trackerRepository, orderRepository, outboxRepository,
		locationArchiver, locks, cfg.LocationHistoryLimit, cfg.Kafka.EventsTopic,
		appLogger.With(zap.String("component", "DeliveryService")),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	http_orders.RegisterRoutes(r, orderService, appLogger)
	http_payments.RegisterRoutes(r, paymentService, cfg.Gateway.WebhookSecret, appLogger)
	http_delivery.RegisterRoutes(r, deliveryService, appLogger)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Fulfillment service listening", zap.String("address", server.Addr))

	<-sigChan

	appLogger.Info("Shutting down fulfillment service...")
	cancelRoot()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Fulfillment service stopped.")
}

// openStore selects the record store backend. Postgres startup retries
// cover the common case of the database container racing the service.
func openStore(cfg *config.Config, appLogger *zap.Logger) (store.RecordStore, func()) {
	if cfg.Database.InMemory {
		appLogger.Info("Using in-memory record store.")
		return store.NewMemoryStore(), func() {}
	}

	appLogger.Info("Waiting for database to be available...")
	dbConfig := cfg.DBConfig()

	maxRetries := 10
	retryDelay := 5 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		db, err := postgres.Open(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			runMigrations(cfg, appLogger)
			return postgres.NewStore(db), func() {
				if err := db.Close(); err != nil {
					appLogger.Error("Error closing database connection", zap.Error(err))
				}
			}
		}
		lastErr = err
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...",
			i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(lastErr))
	return nil, nil
}

func runMigrations(cfg *config.Config, appLogger *zap.Logger) {
	appLogger.Info("Running database migrations...")
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.MigrationConnectionString())
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")
}
