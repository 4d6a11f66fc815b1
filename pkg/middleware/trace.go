package middleware

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/tracing"
)

// Trace opens a root span per request and logs the finished tree at debug
// level. It must run inside RequestID so the trace id matches the request id.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+routeLabel(r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
		span.End()
		logger.FromContext(ctx).Debug("request trace", "trace_id", span.TraceID, "span", span)
	})
}
