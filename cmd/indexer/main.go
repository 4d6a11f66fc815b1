package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	notify := flag.Bool("notify", true, "publish a reload request when kafka is enabled")
	reason := flag.String("reason", "manual", "reason recorded on the reload request")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// A segment nobody can load is pointless.
	cfg.Indexer.Persist = true

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer", "corpus_source", cfg.Corpus.Source, "data_dir", cfg.Indexer.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := corpus.Open(ctx, cfg.Corpus, cfg.Postgres)
	if err != nil {
		slog.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	engine := indexer.NewEngine(cfg.Indexer, source, tokenizer.New(cfg.Analyzer), nil)
	built, err := engine.Build(ctx)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	stats := built.Index.Stats()
	slog.Info("index built",
		"segment", built.Segment,
		"documents", stats.Documents,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"avg_doc_length", stats.AvgDocLength,
	)

	if !cfg.Kafka.Enabled || !*notify {
		return
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexReload)
	defer producer.Close()

	req := consumer.ReloadRequest{
		Segment:     built.Segment,
		Documents:   stats.Documents,
		Reason:      *reason,
		RequestedAt: time.Now().UTC(),
	}
	if err := producer.Publish(ctx, kafka.Event{Key: "index_reload", Value: req}); err != nil {
		slog.Error("failed to publish reload request", "error", err)
		os.Exit(1)
	}
	slog.Info("reload request published", "topic", cfg.Kafka.Topics.IndexReload, "segment", built.Segment)
}
