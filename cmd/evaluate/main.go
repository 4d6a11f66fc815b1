package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	judgmentsPath := flag.String("judgments", "configs/judgments.yaml", "path to judgment set")
	schemes := flag.String("schemes", "sublinear,raw", "comma-separated weighting schemes to compare")
	k := flag.Int("k", 0, "cutoff overriding the judgment file (0 keeps the file's value)")
	format := flag.String("format", "text", "report format: text or json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the report.
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	set, err := evaluation.LoadJudgments(*judgmentsPath)
	if err != nil {
		slog.Error("failed to load judgments", "error", err)
		os.Exit(1)
	}
	if *k > 0 {
		set.K = *k
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := corpus.Open(ctx, cfg.Corpus, cfg.Postgres)
	if err != nil {
		slog.Error("failed to open corpus", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	engine := indexer.NewEngine(cfg.Indexer, source, tokenizer.New(cfg.Analyzer), nil)
	searcher := executor.New(cfg.Search, nil)
	if _, err := searcher.Reload(ctx, func(ctx context.Context) (*index.Index, []corpus.Document, error) {
		built, err := engine.LoadOrBuild(ctx)
		if err != nil {
			return nil, nil, err
		}
		return built.Index, built.Docs, nil
	}); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	reports, err := evaluation.NewRunner(searcher).Compare(ctx, set, splitSchemes(*schemes))
	if err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(reports)
	default:
		err = writeText(os.Stdout, reports)
	}
	if err != nil {
		slog.Error("failed to write report", "error", err)
		os.Exit(1)
	}
}

func splitSchemes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeText(w io.Writer, reports []*evaluation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, rep := range reports {
		fmt.Fprintf(tw, "scheme %s (k=%d, evaluated %d, skipped %d)\n", rep.Scheme, rep.K, rep.Evaluated, rep.Skipped)
		fmt.Fprintln(tw, "id\tmode\tP@k\tR@k\tF1\tAP\tnDCG\tnote")
		for _, q := range rep.Queries {
			switch {
			case q.Error != "":
				fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\t%s\n", q.ID, q.Mode, q.Error)
			case q.Ranked != nil:
				m := q.Ranked
				fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t\n", q.ID, q.Mode, m.Precision, m.Recall, m.F1, m.AveragePrecision, m.NDCG)
			case q.Set != nil:
				m := q.Set
				fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t-\t-\tunranked\n", q.ID, q.Mode, m.Precision, m.Recall, m.F1)
			}
		}
		fmt.Fprintf(tw, "MAP\t%.4f\n", rep.MAP)
		fmt.Fprintf(tw, "mean P@k / R@k / F1 / nDCG\t%.4f / %.4f / %.4f / %.4f\n", rep.MeanPrecision, rep.MeanRecall, rep.MeanF1, rep.MeanNDCG)
		fmt.Fprintf(tw, "boolean P / R / F1\t%.4f / %.4f / %.4f\n\n", rep.BooleanPrecision, rep.BooleanRecall, rep.BooleanF1)
	}
	return tw.Flush()
}
