package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errCode, message string) {
	respondJSON(w, status, map[string]string{
		"error":   errCode,
		"message": message,
	})
}

// loginRedirect describes the query parameters of a /login redirect. Empty
// fields are omitted from the URL.
type loginRedirect struct {
	Error     string
	Message   string
	Attempted string
	Redirect  string
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, params loginRedirect) {
	values := url.Values{}
	if params.Error != "" {
		values.Set("error", params.Error)
	}
	if params.Message != "" {
		values.Set("message", params.Message)
	}
	if params.Attempted != "" {
		values.Set("attempted", params.Attempted)
	}
	if params.Redirect != "" {
		values.Set("redirect", params.Redirect)
	}

	target := "/login"
	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first; only the first hop counts.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// isAPIPath decides the failure surface: API paths get JSON errors,
// navigational paths get login redirects.
func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
