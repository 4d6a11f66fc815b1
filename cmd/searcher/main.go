package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/analytics"
	snapshots "github.com/Adithya-Monish-Kumar-K/minisearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/redis"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus_source", cfg.Corpus.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	source, closeSource, err := corpus.Open(ctx, cfg.Corpus, cfg.Postgres)
	if err != nil {
		slog.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	engine := indexer.NewEngine(cfg.Indexer, source, tokenizer.New(cfg.Analyzer), m)
	searcher := executor.New(cfg.Search, m)

	if _, err := searcher.Reload(ctx, func(ctx context.Context) (*index.Index, []corpus.Document, error) {
		built, err := engine.LoadOrBuild(ctx)
		if err != nil {
			return nil, nil, err
		}
		return built.Index, built.Docs, nil
	}); err != nil {
		slog.Error("initial index build failed", "error", err)
		os.Exit(1)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	// With Kafka, events go to the topic and cmd/analytics aggregates them
	// across searchers. Without it each searcher aggregates its own.
	var (
		aggregator *analytics.Aggregator
		tracker    analytics.Tracker
	)
	if cfg.Analytics.Enabled {
		if cfg.Kafka.Enabled {
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
			defer producer.Close()
			collector := analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
			collector.Start(ctx)
			defer collector.Close()
			tracker = collector
			slog.Info("search events published to kafka", "topic", cfg.Kafka.Topics.SearchEvents)
		} else {
			aggregator = analytics.NewAggregator()
			tracker = aggregator
		}
	}

	var db *postgres.Client
	if aggregator != nil && cfg.Analytics.PersistSnapshots {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			store := snapshots.NewStore(db, cfg.Analytics.SnapshotRetention)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Warn("analytics snapshot schema unavailable", "error", err)
			} else {
				saved := store.StartPeriodicSave(ctx, aggregator, searcher.Generation, cfg.Analytics.SnapshotInterval)
				defer func() { <-saved }()
			}
		}
	}

	h := handler.New(searcher, handler.Options{
		Cache:   queryCache,
		Tracker: tracker,
		Metrics: m,
		Reload: func(ctx context.Context) (*executor.Snapshot, error) {
			return searcher.Reload(ctx, func(ctx context.Context) (*index.Index, []corpus.Document, error) {
				built, err := engine.Build(ctx)
				if err != nil {
					return nil, nil, err
				}
				return built.Index, built.Docs, nil
			})
		},
	})

	if cfg.Kafka.Enabled {
		// Every searcher must see every reload request, so each instance
		// joins its own consumer group.
		reloadCfg := cfg.Kafka
		reloadCfg.ConsumerGroup = fmt.Sprintf("%s-reload-%s", cfg.Kafka.ConsumerGroup, uuid.NewString()[:8])
		reloadConsumer := consumer.New(kafka.NewConsumer(reloadCfg, cfg.Kafka.Topics.IndexReload,
			consumer.HandleReload(func(ctx context.Context) error {
				_, err := h.ReloadIndex(ctx)
				return err
			}),
		))
		go func() {
			if err := reloadConsumer.Start(ctx); err != nil {
				slog.Error("reload consumer error", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap, err := searcher.Current()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("generation %d, %d documents", snap.Generation, snap.Index.NumDocs())}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if db != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	mux := http.NewServeMux()
	h.Register(mux)
	if aggregator != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute))(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Trace(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
