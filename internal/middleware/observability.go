package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"swarmsync/internal/httputil"
	"swarmsync/internal/metrics"
	"swarmsync/internal/tracing"
)

// Standard HTTP log fields
const (
	LogFieldTraceID    = "trace_id"
	LogFieldMethod     = "method"
	LogFieldRoute      = "route"
	LogFieldURL        = "url"
	LogFieldStatusCode = "status_code"
	LogFieldDuration   = "duration_ms"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"
	LogFieldSize       = "response_size"
)

// routeTemplate keeps metric labels bounded by using the mux template
// (/threads/{id}/interactions) instead of the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// ObservabilityMiddleware traces, measures and logs every request. Register
// it with router.Use so the matched route is known.
func ObservabilityMiddleware(logger *logrus.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeTemplate(r)
			clientIP := httputil.GetClientIP(r)

			ctx, span := tracing.StartSpan(r.Context(), "http_request",
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("client.address", clientIP),
				attribute.String("user_agent.original", r.Header.Get("User-Agent")),
			)
			defer span.End()
			r = r.WithContext(ctx)

			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)
			span.SetAttributes(
				attribute.Int("http.response.status_code", wrapper.statusCode),
				attribute.Int64("http.response.size", wrapper.responseSize),
			)
			setSpanStatus(span, wrapper.statusCode)

			m.HTTPRequest(r.Method, route, wrapper.statusCode, duration)

			logLevel := logrus.DebugLevel
			if wrapper.statusCode >= 400 && wrapper.statusCode < 500 {
				logLevel = logrus.WarnLevel
			} else if wrapper.statusCode >= 500 {
				logLevel = logrus.ErrorLevel
			}

			logger.WithFields(logrus.Fields{
				LogFieldTraceID:    tracing.TraceID(ctx),
				LogFieldMethod:     r.Method,
				LogFieldRoute:      route,
				LogFieldStatusCode: wrapper.statusCode,
				LogFieldDuration:   duration.Milliseconds(),
				LogFieldRemoteIP:   clientIP,
				LogFieldSize:       wrapper.responseSize,
			}).Log(logLevel, "HTTP request completed")
		})
	}
}

func setSpanStatus(span oteltrace.Span, status int) {
	if status >= 500 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		return
	}
	span.SetStatus(codes.Ok, "")
}

// responseWrapper captures response metrics
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	responseSize int64
}

func (rw *responseWrapper) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWrapper) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.responseSize += int64(n)
	return n, err
}
