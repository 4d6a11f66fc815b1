// Package consumer listens for index reload requests on Kafka. The indexer
// CLI publishes one after writing a new segment; every searcher subscribed
// to the topic then rebuilds its snapshot.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/kafka"
)

// ReloadRequest is the message carried on the index reload topic.
type ReloadRequest struct {
	Segment     string    `json:"segment,omitempty"`
	Documents   int       `json:"documents"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// ReloadFunc rebuilds and swaps the serving index.
type ReloadFunc func(ctx context.Context) error

// ReloadConsumer wraps a Kafka consumer that drives index reloads.
type ReloadConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *ReloadConsumer {
	return &ReloadConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "reload-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (rc *ReloadConsumer) Start(ctx context.Context) error {
	rc.logger.Info("reload consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleReload returns a MessageHandler that calls reload once per request.
// Requests older than the last completed reload are skipped since that
// reload already picked up their segment. Malformed messages are logged
// and committed.
func HandleReload(reload ReloadFunc) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	var lastReload time.Time
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[ReloadRequest](value)
		if err != nil {
			logger.Error("failed to decode reload request",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if !req.RequestedAt.IsZero() && req.RequestedAt.Before(lastReload) {
			logger.Debug("skipping stale reload request",
				"segment", req.Segment,
				"requested_at", req.RequestedAt,
			)
			return nil
		}
		start := time.Now()
		if err := reload(ctx); err != nil {
			return fmt.Errorf("reloading index for segment %q: %w", req.Segment, err)
		}
		lastReload = start
		logger.Info("index reloaded",
			"segment", req.Segment,
			"reason", req.Reason,
			"duration", time.Since(start),
		)
		return nil
	}
}
