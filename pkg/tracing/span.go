// Package tracing records in-process span trees for a request. A root span
// is opened per HTTP request; query stages attach children through the
// context. The finished tree is logged through slog as one nested group.
package tracing

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
)

type contextKey struct{}

type Span struct {
	Name    string
	TraceID string
	Start   time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	attrs    []slog.Attr
	children []*Span
}

// StartSpan opens a span under the span already in ctx, or a new root when
// there is none. Roots take the request id as trace id when one is set.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else if id := logger.RequestID(ctx); id != "" {
		span.TraceID = id
	} else {
		span.TraceID = uuid.NewString()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the innermost open span, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span duration. Later calls are no-ops.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.duration = time.Since(s.Start)
		s.ended = true
	}
}

// SetAttr records an attribute. Attributes set after End are dropped.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.attrs = append(s.attrs, slog.Any(key, value))
	}
}

// Attr returns the last value recorded under key.
func (s *Span) Attr(key string) (slog.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.attrs) - 1; i >= 0; i-- {
		if s.attrs[i].Key == key {
			return s.attrs[i].Value, true
		}
	}
	return slog.Value{}, false
}

func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Children returns a copy of the direct children.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// LogValue renders the span and its children as nested groups. Spans still
// open when logged report ended=false.
func (s *Span) LogValue() slog.Value {
	s.mu.Lock()
	attrs := []slog.Attr{
		slog.String("name", s.Name),
		slog.Float64("duration_ms", float64(s.duration.Microseconds())/1000),
	}
	if !s.ended {
		attrs = append(attrs, slog.Bool("ended", false))
	}
	attrs = append(attrs, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	for i, child := range children {
		attrs = append(attrs, slog.Any(child.Name+"#"+strconv.Itoa(i), child))
	}
	return slog.GroupValue(attrs...)
}
