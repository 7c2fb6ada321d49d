package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/lealta/gateway/internal/observability/logger"
)

// NewUpstreamProxy builds the reverse proxy fronting the application.
func NewUpstreamProxy(rawURL string) (http.Handler, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.ErrorContext(r.Context(), "upstream request failed",
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
		respondError(w, http.StatusBadGateway, "Bad gateway", "Upstream unavailable")
	}

	return proxy, nil
}
