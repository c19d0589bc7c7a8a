package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/septivank/greenmove-rewards/internal/config"
	"github.com/septivank/greenmove-rewards/internal/db"
	"github.com/septivank/greenmove-rewards/internal/httpapi"
	"github.com/septivank/greenmove-rewards/internal/metrics"
	"github.com/septivank/greenmove-rewards/internal/mq"
	"github.com/septivank/greenmove-rewards/internal/program"
	"github.com/septivank/greenmove-rewards/internal/service"
	"github.com/septivank/greenmove-rewards/internal/store"
	"github.com/septivank/greenmove-rewards/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.ProcessorService,
) (*mq.Consumer, error) {
	// Create context for consumer that will be cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.IngestQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.IngestExchange,
		RoutingKey:       cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: processor.ProcessMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting worker consumer",
				zap.String("queue", cfg.RabbitMQ.IngestQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// startHTTPServer serves the read API, health probes and metrics.
func startHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	prog *program.Program,
	conn *mq.Connection,
	ledger *Ledger,
	registry *prometheus.Registry,
) *http.Server {
	checks := map[string]httpapi.Check{
		"rabbitmq": func(context.Context) error {
			if !conn.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		},
	}
	if ledger.Ping != nil {
		checks[ledger.Backend] = ledger.Ping
	}

	handler := httpapi.NewRouter(httpapi.NewHandler(prog, checks, logger), registry)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServicePort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("[HTTP] failed to listen on %s: %w", srv.Addr, err)
			}
			logger.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

// Ledger is the configured account store together with its readiness probe.
type Ledger struct {
	Backend string
	Store   store.Store
	Ping    httpapi.Check
}

// ProvideLedger opens the store selected by STORE_BACKEND
func ProvideLedger(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*Ledger, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := db.NewPool(lc, logger, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		return &Ledger{
			Backend: cfg.Store.Backend,
			Store:   store.NewPostgres(pool),
			Ping:    pool.Ping,
		}, nil
	default:
		st, err := store.OpenLevelDB(cfg.Store.LevelDBPath, cfg.Store.SyncWrites)
		if err != nil {
			return nil, err
		}
		logger.Info("ledger opened",
			zap.String("backend", config.BackendLevelDB),
			zap.String("path", cfg.Store.LevelDBPath))
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return st.Close()
			},
		})
		return &Ledger{Backend: config.BackendLevelDB, Store: st}, nil
	}
}

// ProvideStore exposes the ledger's account store
func ProvideStore(ledger *Ledger) store.Store {
	return ledger.Store
}

// ProvideProgram creates the instruction executor from configuration
func ProvideProgram(st store.Store, cfg *config.Config, logger *zap.Logger) (*program.Program, error) {
	programID, err := cfg.ProgramAddress()
	if err != nil {
		return nil, err
	}
	engine, err := cfg.RewardEngine()
	if err != nil {
		return nil, err
	}
	return program.New(programID, st, engine, cfg.AnomalyDetector(), logger.Named("program")), nil
}

// ProvideRegistry creates the prometheus registry served on /metrics
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics registers the worker metrics
func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.TimestampToleranceMinutes)
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.WorkerExchange, logger)
}

// ProvideProcessorService creates a new processor service instance
func ProvideProcessorService(
	prog *program.Program,
	publisher *mq.Publisher,
	validator *validator.Validator,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *service.ProcessorService {
	return service.NewProcessorService(prog, publisher, validator, m, cfg, logger)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}
