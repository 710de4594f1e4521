package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"tenant-registry/internal/api"
	"tenant-registry/internal/auth"
	"tenant-registry/internal/config"
	"tenant-registry/internal/consumer"
	"tenant-registry/internal/lock"
	"tenant-registry/internal/logging"
	"tenant-registry/internal/manager"
	"tenant-registry/internal/messaging"
	"tenant-registry/internal/metrics"
	"tenant-registry/internal/storage"
	"tenant-registry/internal/storage/memstore"
	"tenant-registry/internal/worker"
)

// @title Tenant Registry API
// @version 1.0
// @description Organization provisioning over per-tenant PostgreSQL namespaces
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "YAML config file; empty reads the environment only")
	flag.Parse()

	// Init Metrics
	metrics.Init()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	logger.Info("configuration loaded", "backend", cfg.Storage.Backend, "addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("graceful shutdown complete")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		registry   manager.Registry
		namespaces manager.Namespaces
		credStore  auth.CredentialStore
		ping       func(context.Context) error
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		mem := memstore.New()
		registry, namespaces, credStore = mem, mem, mem
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := storage.NewStorage(cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Bootstrap(ctx); err != nil {
			return err
		}
		reg := db.Registry()
		registry, namespaces, credStore = reg, db.Namespaces(), reg
		ping = db.Ping
		logger.Info("PostgreSQL connected")
	}

	hasher := auth.NewBcrypt(cfg.Auth.BcryptCost)
	var opts []manager.Option

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		opts = append(opts, manager.WithLocker(lock.NewRedis(client, cfg.Redis.LockTTL, logger)))
		logger.Info("Redis connected; organization locks are distributed")
	}

	var pool *worker.WorkerPool
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, logger)
		if err != nil {
			return err
		}
		defer rabbitClient.Close()
		if err := rabbitClient.DeclareQueue(messaging.RemediationQueue); err != nil {
			return err
		}
		opts = append(opts, manager.WithNotifier(messaging.NewPublisher(rabbitClient, messaging.RemediationQueue)))

		remediator := manager.NewRemediator(registry, namespaces, logger)
		pool = worker.NewWorkerPool(messaging.RemediationQueue, remediator.HandleMessage, cfg.Workers, logger)
		c, err := consumer.StartConsumer(ctx, rabbitClient.GetConnection(), messaging.RemediationQueue, cfg.RabbitMQ.Prefetch, pool, logger)
		if err != nil {
			return err
		}
		defer c.Stop()

		// Start background loop for updating queue depth metrics
		go func() {
			ticker := time.NewTicker(cfg.RabbitMQ.DepthInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					rabbitClient.UpdateQueueDepth(messaging.RemediationQueue)
					rabbitClient.UpdateQueueDepth(messaging.DeadLetterQueue(messaging.RemediationQueue))
				}
			}
		}()
		logger.Info("RabbitMQ connected; remediation workers running", "workers", cfg.Workers)
	} else {
		logger.Warn("rabbitmq.url not set; failed provisioning steps are reported but not retried")
	}

	tm := manager.NewTenantManager(registry, namespaces, hasher, logger, opts...)
	creds, err := auth.NewCredentialService(credStore, hasher, logger)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	apiHandler := api.NewAPI(tm, creds, issuer, cfg, logger)
	apiHandler.Ping = ping
	if pool != nil {
		apiHandler.Pool = pool
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	return nil
}
