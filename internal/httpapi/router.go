package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"tracehub/internal/config"
	"tracehub/internal/correlate"
	"tracehub/internal/health"
	"tracehub/internal/models"
	"tracehub/internal/queue"
	"tracehub/internal/ratelimit"
	"tracehub/internal/retention"
	"tracehub/internal/storage"
	"tracehub/internal/utils"
	"tracehub/internal/worker"
)

// EventStore is the slice of the event repository the HTTP layer reads
// from directly.
type EventStore interface {
	RecentTraces(ctx context.Context, limit int) ([]models.TraceSummary, error)
	EstimatedStorageMB(ctx context.Context) (float64, error)
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Logger     *utils.Logger
	Meter      *ratelimit.Meter
	Queue      queue.Queue
	Worker     *worker.Client
	Correlate  *correlate.Service
	Events     EventStore
	Thresholds health.Thresholds

	// Background workers, owned here so main can stop them on shutdown.
	IngestWorker *storage.IngestWorker
	Retention    *retention.Job

	db          *storage.DB
	redisClient *storage.RedisClient
	dlq         queue.DeadLetterQueue
}

// NewRouter creates an HTTP router with all dependencies wired up.
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	logger := utils.NewLogger("httpapi")

	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.EnsureSchema(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	redisClient, err := storage.NewRedisClient(storage.RedisConfig{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	repo := storage.NewLogEventRepository(db)

	meter := ratelimit.NewMeter(redisClient.Client(), ratelimit.Config{
		Window:        cfg.Rate.Window,
		GlobalLimit:   cfg.Rate.GlobalLimit,
		CostPerWrite:  cfg.Cost.PerWriteUSD,
		BudgetCeiling: cfg.Cost.BudgetCeilingUSD,
	})

	queueCfg := queue.DefaultConfig("ingest")
	queueCfg.BatchSize = cfg.Queue.BatchSize
	queueCfg.BatchTimeout = cfg.Queue.BatchTimeout
	queueCfg.MaxRetries = cfg.Queue.MaxRetries
	queueCfg.RetryBackoff = cfg.Queue.RetryBackoff

	ingestQueue := queue.NewRedisQueueWithClient(redisClient.Client(), queueCfg)
	ingestDLQ := queue.NewRedisDeadLetterQueue(redisClient.Client(), queueCfg.QueueName)

	ingestWorker := storage.NewIngestWorker(ingestQueue, ingestDLQ, repo, queueCfg)
	ingestWorker.Start(context.Background())

	retentionJob := retention.NewJob(repo, retention.Config{
		Schedule: cfg.Retention.Schedule,
		MaxAge:   cfg.Retention.MaxAge,
	}, utils.NewLogger("retention"))
	if err := retentionJob.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to schedule retention: %w", err)
	}

	deps := &Dependencies{
		Logger:       logger,
		Meter:        meter,
		Queue:        ingestQueue,
		Worker:       worker.NewClient(cfg.Worker.URL, cfg.Worker.Timeout),
		Correlate:    correlate.NewService(repo),
		Events:       repo,
		Thresholds:   cfg.Thresholds,
		IngestWorker: ingestWorker,
		Retention:    retentionJob,
		db:           db,
		redisClient:  redisClient,
		dlq:          ingestDLQ,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	return mux, deps, nil
}

// Close stops background workers and releases connections. Safe to call on
// a partially constructed value.
func (deps *Dependencies) Close() {
	if deps.Retention != nil {
		deps.Retention.Stop()
	}
	if deps.IngestWorker != nil {
		deps.IngestWorker.Stop()
	}
	if deps.Queue != nil {
		deps.Queue.Close()
	}
	if deps.dlq != nil {
		deps.dlq.Close()
	}
	if deps.redisClient != nil {
		deps.redisClient.Close()
	}
	if deps.db != nil {
		deps.db.Close()
	}
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	// Liveness probe, no dependencies consulted.
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/ingest", deps.handleIngest)
	mux.HandleFunc("GET /api/system/health", deps.handleSystemHealth)
	mux.HandleFunc("GET /api/ratelimit", deps.handleRateLimit)
	mux.HandleFunc("POST /api/ratelimit/update", deps.handleRateLimitUpdate)
	mux.HandleFunc("GET /api/metrics/cost", deps.handleCostMetrics)
	mux.HandleFunc("GET /api/traces/recent", deps.handleRecentTraces)
	mux.HandleFunc("GET /api/traces/{id}", deps.handleTrace)
	mux.HandleFunc("GET /api/traces/{id}/export", deps.handleTraceExport)
}
