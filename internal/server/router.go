package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/affiliatedesk/internal/auth"
	"github.com/vanshika/affiliatedesk/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health           HealthService
	API              *APIHandlers
	Metrics          *metrics.Metrics
	MetricsEnabled   bool
	Auth             *auth.Verifier
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter wires the HTTP routes exposed by the back-office API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := healthResponse{Status: "ok", Components: map[string]string{}}
		if deps.Health != nil {
			report := deps.Health.Probe(ctx)
			for name, err := range report {
				if err != nil {
					logger.Error("health probe failed", "component", name, "error", err)
					status = http.StatusServiceUnavailable
					payload.Status = "degraded"
					payload.Components[name] = err.Error()
					continue
				}
				payload.Components[name] = "ok"
			}
		}
		respondJSON(w, status, payload)
	})

	if deps.MetricsEnabled && deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	if api := deps.API; api != nil {
		guard := adminOnly(deps.Auth)
		routes := map[string]http.HandlerFunc{
			"GET /affiliates":                    api.listAffiliates,
			"GET /affiliates/{id}":               api.getAffiliate,
			"PUT /affiliates/{id}/referral-code": api.updateReferralCode,
			"POST /affiliates/{id}/suspend":      api.suspendAffiliate,
			"POST /affiliates/{id}/activate":     api.activateAffiliate,
			"GET /affiliates/{id}/income":        api.affiliateIncome,
			"GET /reports/income":                api.incomeReport,
			"POST /reports/income/compute":       api.computeReport,
			"GET /commissions":                   api.listCommissions,
			"GET /payouts":                       api.listPayouts,
			"GET /attributions":                  api.listAttributions,
			"POST /attributions":                 api.linkAttribution,
			"GET /export/incomes":                api.exportIncomes,
			"GET /export/commissions":            api.exportCommissions,
		}
		for pattern, h := range routes {
			mux.Handle(pattern, guard(h))
		}
	}

	handler := observe(logger, deps.Metrics, mux)
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins, deps.AllowCredentials)(handler)
	}
	return requestID(handler)
}

// requestID propagates or assigns the X-Request-ID header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// observe logs and measures each request. It must wrap the mux directly:
// the mux records the matched pattern on the request it is handed.
func observe(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		m.ObserveHTTP(r.Method, route, rec.status, elapsed)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

// adminOnly rejects requests without a valid admin bearer token. A verifier
// without a secret lets everything through.
func adminOnly(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !v.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := v.VerifyHeader(r.Header.Get("Authorization"))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrForbidden):
				writeError(w, http.StatusForbidden, "admin role required")
			default:
				w.Header().Set("WWW-Authenticate", `Bearer realm="affiliatedesk"`)
				writeError(w, http.StatusUnauthorized, "valid bearer token required")
			}
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func corsMiddleware(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!containsOrigin(normalized, origin) && !containsOrigin(normalized, "*")) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			if allowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-Report-Cache")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}

// SplitOrigins parses a comma-separated origin list.
func SplitOrigins(csv string) []string {
	var out []string
	for _, o := range strings.Split(csv, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
