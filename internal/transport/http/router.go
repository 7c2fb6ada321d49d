// Copyright 2026 The Lealta Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// NewRouter creates the gateway router. Everything except the gateway's
// own health endpoint flows through the dispatcher.
func NewRouter(d *Dispatcher, checks map[string]HealthCheck, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/api/health", healthHandler(checks))

	r.Handle("/*", d)

	return r
}

// healthHandler reports gateway liveness and per-dependency status. A
// failing dependency degrades the report but still answers 200: the
// gateway itself is up, and the limiter and caches fail open.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"status":  "healthy",
			"service": "lealta-gateway",
		}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name] = "unavailable"
				status["status"] = "degraded"
				continue
			}
			status[name] = "ok"
		}
		respondJSON(w, http.StatusOK, status)
	}
}
