package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"swarmsync/internal/httputil"
	"swarmsync/internal/privacy"
	"swarmsync/internal/tracing"
)

// DetailedLoggingConfig controls what gets logged
type DetailedLoggingConfig struct {
	LogRequestHeaders bool
	SensitiveHeaders  []string
	SkipEndpoints     []string
}

func DefaultDetailedLoggingConfig() DetailedLoggingConfig {
	return DetailedLoggingConfig{
		LogRequestHeaders: true,
		SensitiveHeaders: []string{
			"authorization", "cookie", "x-api-key", "x-auth-token",
		},
		SkipEndpoints: []string{"/metrics", "/health"},
	}
}

// DetailedLoggingMiddleware logs request headers and path parameters at
// debug level. Thread ids in path parameters are masked.
func DetailedLoggingMiddleware(logger *logrus.Logger, config DetailedLoggingConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range config.SkipEndpoints {
				if r.URL.Path == skip {
					next.ServeHTTP(w, r)
					return
				}
			}
			logRequestDetails(logger, r, config)
			next.ServeHTTP(w, r)
		})
	}
}

func logRequestDetails(logger *logrus.Logger, r *http.Request, config DetailedLoggingConfig) {
	fields := logrus.Fields{
		LogFieldTraceID:   tracing.TraceID(r.Context()),
		LogFieldMethod:    r.Method,
		LogFieldURL:       r.URL.Path,
		LogFieldRemoteIP:  httputil.GetClientIP(r),
		LogFieldUserAgent: r.Header.Get("User-Agent"),
		"query":           r.URL.RawQuery,
		"protocol":        r.Proto,
	}

	if vars := mux.Vars(r); len(vars) > 0 {
		params := make(map[string]interface{}, len(vars))
		for k, v := range vars {
			params[k] = v
		}
		if id, ok := params["id"].(string); ok {
			params["id"] = privacy.MaskSessionID(id)
		}
		fields["path_params"] = params
	}

	if config.LogRequestHeaders {
		headers := make(map[string]string)
		for name, values := range r.Header {
			if isSensitiveHeader(name, config.SensitiveHeaders) {
				headers[name] = "***MASKED***"
			} else {
				headers[name] = strings.Join(values, ", ")
			}
		}
		fields["request_headers"] = headers
	}

	logger.WithFields(fields).Debug("Detailed request logging")
}

func isSensitiveHeader(headerName string, sensitiveHeaders []string) bool {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(sensitive, headerName) {
			return true
		}
	}
	return false
}
