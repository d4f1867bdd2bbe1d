package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vinco360/crm-replicator/internal/adapters/cache"
	"github.com/vinco360/crm-replicator/internal/adapters/crm"
	eventadapter "github.com/vinco360/crm-replicator/internal/adapters/events"
	grpcadapter "github.com/vinco360/crm-replicator/internal/adapters/grpc"
	httpadapter "github.com/vinco360/crm-replicator/internal/adapters/http"
	"github.com/vinco360/crm-replicator/internal/adapters/postgres"
	"github.com/vinco360/crm-replicator/internal/adapters/security"
	"github.com/vinco360/crm-replicator/internal/adapters/sourcedb"
	"github.com/vinco360/crm-replicator/internal/application"
	"github.com/vinco360/crm-replicator/internal/ports"
	"google.golang.org/grpc"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	consumer   *eventadapter.ConsumerWorker
	dispatcher *application.Dispatcher
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	lookupCache := cache.NewRedisLookupCache(redisClient)

	repo := postgres.NewPendingPackageRepository(db)
	if cfg.EncryptionSeed != "" {
		repo = security.NewEncryptedPendingRepository(repo, security.NewPayloadCipher(cfg.EncryptionSeed))
	}

	crmClient := crm.NewClient(crm.Config{
		BaseURL:      cfg.CRMBaseURL,
		ClientID:     cfg.CRMClientID,
		ClientSecret: cfg.CRMClientSecret,
		Username:     cfg.CRMUsername,
		Password:     cfg.CRMPassword,
		Timeout:      cfg.CRMTimeout,
	})
	resolver := application.NewResolver(crmClient, lookupCache, cfg.LookupCacheTTL)
	dispatcher := application.NewDispatcher(crmClient, resolver, logger)
	engine := application.NewEngine(application.NewOrderer(), dispatcher, logger)

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			application.EventPackageReplicated: cfg.KafkaTopicReplicated,
			application.EventPackageDeferred:   cfg.KafkaTopicDeferred,
			application.EventPackageRecovered:  cfg.KafkaTopicRecovered,
			application.EventPackageStillFails: cfg.KafkaTopicRetryFailed,
		})
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, cfg.KafkaTopicNotifications)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}

	orchestrator := application.NewOrchestrator(application.Dependencies{
		Repo:            repo,
		Engine:          engine,
		Publisher:       publisher,
		Logger:          logger,
		RedemptionDelay: cfg.RedemptionDelay,
	})
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, orchestrator, cfg.ConsumerPollInterval)

	handler := httpadapter.NewHandler(orchestrator, repo)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, _ := grpcadapter.NewServer()
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		consumer:   consumer,
		dispatcher: dispatcher,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

// Run serves the HTTP and gRPC surfaces and drives the notification consumer
// until the context is cancelled or a surface fails.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 3)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunImport connects to the legacy loyalty database and backfills every client
// matched by clientQuery through the live dispatcher, then exits.
func (r *Runtime) RunImport(ctx context.Context, clientQuery string) error {
	if r.cfg.SourceDBDSN == "" {
		return fmt.Errorf("missing SOURCE_DB_DSN")
	}
	src, err := sourcedb.Connect(ctx, r.cfg.SourceDBDSN)
	if err != nil {
		return err
	}
	defer src.Close()

	importer := application.NewImporter(src, r.dispatcher, r.logger)
	err = importer.Run(ctx, clientQuery)
	r.cleanupFn(context.Background())
	return err
}
