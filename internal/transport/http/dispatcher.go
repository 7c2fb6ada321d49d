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
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lealta/gateway/internal/audit"
	"github.com/lealta/gateway/internal/business"
	"github.com/lealta/gateway/internal/observability/logger"
	"github.com/lealta/gateway/internal/observability/metrics"
	"github.com/lealta/gateway/internal/ratelimit"
	"github.com/lealta/gateway/internal/rbac"
	"github.com/lealta/gateway/internal/session"
)

// Identity headers the gateway stamps on rewritten requests. The upstream
// trusts these, so they are always overwritten, never merged with what the
// client sent.
const (
	headerBusinessID        = "x-business-id"
	headerBusinessSubdomain = "x-business-subdomain"
	headerBusinessName      = "x-business-name"
	headerUserID            = "x-user-id"
	headerUserRole          = "x-user-role"
	headerSessionType       = "x-session-type"
)

// publicPrefixes lists paths that pass through with no tenant or session
// checks. "/" is matched exactly, everything else by prefix.
var publicPrefixes = []string{
	"/login",
	"/signup",
	"/api/auth",
	"/api/businesses",
	"/api/portal/config",
	"/api/branding",
	"/api/debug",
	"/api/health",
	"/_next",
	"/favicon",
	"/manifest",
	"/sw.js",
	"/icons",
	"/images",
	"/uploads",
}

// legacyBarePaths are the pre-multitenant entry points. They carry no
// tenant segment and must be redirected to their tenant-scoped form.
var legacyBarePaths = []string{"/admin", "/staff", "/superadmin", "/cliente"}

// criticalAPIPrefixes are APIs that operate on tenant data and are
// meaningless without a business context.
var criticalAPIPrefixes = []string{"/api/clients", "/api/consumos", "/api/business"}

// protectedPrefixes get a cookie-only role gate: the claimed role decides,
// with no store round trip. Tenant-scoped paths never reach this rule.
var protectedPrefixes = []string{"/dashboard", "/api/users", "/api/business", "/api/clients", "/api/consumos"}

// rule is one entry of the dispatch table. serve returns false to decline
// the request and let later rules (or the default passthrough) take it.
type rule struct {
	name  string
	match func(r *http.Request) bool
	serve func(w http.ResponseWriter, r *http.Request) bool
}

// Dispatcher classifies every incoming request and decides its fate:
// forward untouched, rewrite into a tenant context, redirect, or reject.
// Rules run in declaration order; the first rule that matches and accepts
// wins. Rate limiting runs before the table.
type Dispatcher struct {
	resolver  *business.Resolver
	validator *session.Validator
	limiter   *ratelimit.Limiter
	audit     audit.Logger
	metrics   *metrics.Gateway
	upstream  http.Handler

	cookieName string
	rules      []rule
}

// NewDispatcher creates the dispatcher over its collaborators. upstream
// receives every request the gateway lets through.
func NewDispatcher(
	resolver *business.Resolver,
	validator *session.Validator,
	limiter *ratelimit.Limiter,
	auditLogger audit.Logger,
	gatewayMetrics *metrics.Gateway,
	upstream http.Handler,
	cookieName string,
) *Dispatcher {
	d := &Dispatcher{
		resolver:   resolver,
		validator:  validator,
		limiter:    limiter,
		audit:      auditLogger,
		metrics:    gatewayMetrics,
		upstream:   upstream,
		cookieName: cookieName,
	}

	d.rules = []rule{
		{
			name:  "client_api_passthrough",
			match: func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/api/cliente") },
			serve: func(w http.ResponseWriter, r *http.Request) bool { d.forward(w, r); return true },
		},
		{
			name:  "client_route",
			match: func(r *http.Request) bool { return session.IsClientEntryPath(r.URL.Path) },
			serve: d.serveClientRoute,
		},
		{
			name:  "public_allowlist",
			match: func(r *http.Request) bool { return isPublicPath(r.URL.Path) },
			serve: func(w http.ResponseWriter, r *http.Request) bool { d.forward(w, r); return true },
		},
		{
			name:  "legacy_bare_path",
			match: func(r *http.Request) bool { return isLegacyBarePath(r.URL.Path) },
			serve: d.serveLegacyBarePath,
		},
		{
			name:  "business_selection_blocked",
			match: func(r *http.Request) bool { return strings.Contains(r.URL.Path, "business-selection") },
			serve: d.serveBusinessSelection,
		},
		{
			name: "admin_page",
			match: func(r *http.Request) bool {
				return session.IsAdminPath(r.URL.Path) && !isAPIPath(r.URL.Path)
			},
			serve: d.serveAdminPage,
		},
		{
			name: "admin_api",
			match: func(r *http.Request) bool {
				return strings.HasPrefix(r.URL.Path, "/api/admin/") || strings.HasPrefix(r.URL.Path, "/api/staff/")
			},
			serve: d.serveAdminAPI,
		},
		{
			name:  "critical_api_context",
			match: matchCriticalAPI,
			serve: d.serveCriticalAPI,
		},
		{
			name: "tenant_rewrite",
			match: func(r *http.Request) bool {
				return business.ExtractIdentifier(r.URL.Path) != ""
			},
			serve: d.serveTenantRewrite,
		},
		{
			name:  "client_route_no_business",
			match: func(r *http.Request) bool { return session.IsClientEntryPath(r.URL.Path) },
			serve: d.serveClientRouteNoBusiness,
		},
		{
			name:  "protected_prefix",
			match: func(r *http.Request) bool { return isProtectedPath(r.URL.Path) },
			serve: d.serveProtectedPrefix,
		},
	}

	return d
}

// ServeHTTP runs the rate limiter and then walks the rule table.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d.handleRateLimit(w, r) {
		return
	}

	for _, rl := range d.rules {
		if !rl.match(r) {
			continue
		}
		if rl.serve(w, r) {
			slog.DebugContext(r.Context(), "request dispatched",
				logger.Rule(rl.name),
				logger.Path(r.URL.Path),
			)
			return
		}
	}

	d.forward(w, r)
}

func (d *Dispatcher) handleRateLimit(w http.ResponseWriter, r *http.Request) bool {
	category := ratelimit.Categorize(r.URL.Path)
	result := d.limiter.Check(r.Context(), getIPAddress(r), r.URL.Path, category)
	if result.Allowed {
		return false
	}

	d.metrics.RateLimited.Add(r.Context(), 1)
	d.audit.Log(r.Context(), audit.Event{
		Type:      audit.TypeRateLimitRejected,
		Path:      r.URL.Path,
		Reason:    "rate limit exceeded for category " + string(category),
		IPAddress: getIPAddress(r),
		Referer:   r.Referer(),
	})

	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfterSeconds))
	respondJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":      "Too many requests",
		"message":    "Request rate limit exceeded. Try again later.",
		"retryAfter": result.RetryAfterSeconds,
	})
	return true
}

// serveClientRoute handles tenant-scoped client portal paths. Clients are
// never asked for a cookie here; only the tenant itself gates access.
func (d *Dispatcher) serveClientRoute(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	bctx, err := d.resolver.Resolve(ctx, r.URL.Path)
	if err != nil {
		if errors.Is(err, business.ErrBusinessNotFound) {
			d.redirectInvalidBusiness(w, r)
			return true
		}
		d.failResolution(w, r, err)
		return true
	}
	if bctx == nil {
		// Reserved first segment; a later rule decides.
		return false
	}

	d.rewrite(w, r, bctx, identityHeaders{sessionType: string(session.KindClient)})
	return true
}

func (d *Dispatcher) serveLegacyBarePath(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	attempted := r.URL.Path

	d.audit.Log(ctx, audit.Event{
		Type:      audit.TypeLegacyRouteBlocked,
		Path:      attempted,
		Reason:    "bare legacy path intercepted",
		IPAddress: getIPAddress(r),
		Referer:   r.Referer(),
	})

	sess, err := d.validator.ValidateAdmin(ctx, d.rawCookie(r), "")
	switch {
	case err == nil && sess.BusinessSlug != "":
		target := "/" + sess.BusinessSlug + attempted
		d.metrics.Redirects.Add(ctx, 1)
		http.Redirect(w, r, target, http.StatusFound)

	case err == nil:
		d.metrics.Redirects.Add(ctx, 1)
		redirectToLogin(w, r, loginRedirect{
			Error:     "business-required",
			Message:   "Your account has no business assigned. Contact support.",
			Attempted: attempted,
		})

	case errors.Is(err, session.ErrAccountLocked):
		d.audit.Log(ctx, audit.Event{
			Type:      audit.TypeLockedAccountHit,
			Path:      attempted,
			Reason:    "locked account on legacy path",
			IPAddress: getIPAddress(r),
		})
		d.metrics.Redirects.Add(ctx, 1)
		redirectToLogin(w, r, loginRedirect{
			Error:     "account-locked",
			Message:   "Account temporarily locked. Try again later.",
			Attempted: attempted,
		})

	default:
		d.metrics.Redirects.Add(ctx, 1)
		redirectToLogin(w, r, loginRedirect{
			Error:     "auth-required",
			Message:   "Sign in to continue.",
			Attempted: attempted,
		})
	}
	return true
}

// serveBusinessSelection blocks the retired business-selection surface
// unconditionally. Cookies, roles, and tenants are irrelevant here.
func (d *Dispatcher) serveBusinessSelection(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	d.audit.Log(ctx, audit.Event{
		Type:   audit.TypeSelectionProbeBlocked,
		Path:   r.URL.Path,
		Reason: "legacy business selection surface probed",
		Metadata: map[string]any{
			"query": r.URL.RawQuery,
		},
		IPAddress: getIPAddress(r),
		Referer:   r.Referer(),
	})

	d.metrics.Redirects.Add(ctx, 1)
	redirectToLogin(w, r, loginRedirect{
		Error:   "legacy-redirect-blocked",
		Message: "Business selection is no longer available.",
	})
	return true
}

func (d *Dispatcher) serveAdminPage(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	bctx, err := d.resolver.Resolve(ctx, r.URL.Path)
	if err != nil {
		if errors.Is(err, business.ErrBusinessNotFound) {
			d.audit.Log(ctx, audit.Event{
				Type:      audit.TypeInvalidBusinessRequest,
				Path:      r.URL.Path,
				Reason:    "unknown or inactive business on admin path",
				IPAddress: getIPAddress(r),
			})
			d.redirectInvalidBusiness(w, r)
			return true
		}
		d.failResolution(w, r, err)
		return true
	}
	if bctx == nil {
		return false
	}

	sess, err := d.validator.ValidateAdmin(ctx, d.rawCookie(r), bctx.BusinessID)
	if err != nil {
		d.serveAdminPageFailure(w, r, bctx, err)
		return true
	}

	// Role narrowing: a valid session on an area above its station is
	// sent to its own landing page inside the same tenant, never denied.
	seg := business.ExtractIdentifier(r.URL.Path)
	rest := bctx.RemainingPath
	if strings.HasPrefix(rest, "/superadmin") && sess.Role != rbac.RoleSuperAdmin {
		d.metrics.Redirects.Add(ctx, 1)
		http.Redirect(w, r, "/"+seg+rbac.LandingPath(sess.Role), http.StatusFound)
		return true
	}
	if strings.HasPrefix(rest, "/admin") && sess.Role == rbac.RoleStaff {
		d.metrics.Redirects.Add(ctx, 1)
		http.Redirect(w, r, "/"+seg+"/staff", http.StatusFound)
		return true
	}

	if perm := rbac.RequiredPermission(rest); perm != "" && !sess.HasPermission(perm) {
		d.audit.Log(ctx, audit.Event{
			Type:       audit.TypePermissionDenied,
			BusinessID: bctx.BusinessID,
			ActorID:    sess.UserID,
			Path:       r.URL.Path,
			Reason:     "missing permission " + perm,
			IPAddress:  getIPAddress(r),
		})
		d.metrics.Denials.Add(ctx, 1)
		respondError(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
		return true
	}

	d.rewrite(w, r, bctx, identityHeaders{
		userID:      sess.UserID,
		userRole:    string(sess.Role),
		sessionType: string(session.KindAdmin),
	})
	return true
}

func (d *Dispatcher) serveAdminPageFailure(w http.ResponseWriter, r *http.Request, bctx *business.Context, err error) {
	ctx := r.Context()
	attempted := r.URL.Path

	var params loginRedirect
	switch {
	case errors.Is(err, session.ErrNoSession):
		params = loginRedirect{Error: "admin-auth-required", Message: "Sign in to access the admin area.", Attempted: attempted}

	case errors.Is(err, session.ErrSessionExpired), errors.Is(err, session.ErrSessionInvalid):
		d.audit.Log(ctx, audit.Event{
			Type:       audit.TypeSessionValidationFailed,
			BusinessID: bctx.BusinessID,
			Path:       attempted,
			Reason:     err.Error(),
			IPAddress:  getIPAddress(r),
		})
		params = loginRedirect{Error: "session-expired", Message: "Your session is no longer valid. Sign in again.", Attempted: attempted}

	case errors.Is(err, session.ErrAccountLocked):
		d.audit.Log(ctx, audit.Event{
			Type:       audit.TypeLockedAccountHit,
			BusinessID: bctx.BusinessID,
			Path:       attempted,
			Reason:     "locked account on admin path",
			IPAddress:  getIPAddress(r),
		})
		params = loginRedirect{Error: "account-locked", Message: "Account temporarily locked. Try again later.", Attempted: attempted}

	case errors.Is(err, session.ErrBusinessMismatch):
		d.audit.Log(ctx, audit.Event{
			Type:       audit.TypeCrossTenantDenied,
			BusinessID: bctx.BusinessID,
			Path:       attempted,
			Reason:     "session belongs to another business",
			IPAddress:  getIPAddress(r),
		})
		params = loginRedirect{Error: "access-denied", Message: "You do not have access to this business.", Attempted: attempted}

	default:
		slog.ErrorContext(ctx, "admin session validation failed",
			logger.Path(attempted),
			logger.Error(err),
		)
		params = loginRedirect{Error: "business-error", Message: "Something went wrong. Try again.", Attempted: attempted}
	}

	d.metrics.Redirects.Add(ctx, 1)
	redirectToLogin(w, r, params)
}

// serveAdminAPI is the JSON twin of serveAdminPage: same ladder, no
// redirects, distinct status codes per rung.
func (d *Dispatcher) serveAdminAPI(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	sess, err := d.validator.ValidateAdmin(ctx, d.rawCookie(r), "")
	if err != nil {
		d.metrics.Denials.Add(ctx, 1)
		switch {
		case errors.Is(err, session.ErrNoSession):
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		case errors.Is(err, session.ErrSessionInvalid):
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid session")
		case errors.Is(err, session.ErrSessionExpired):
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Session expired")
		case errors.Is(err, session.ErrAccountLocked):
			d.audit.Log(ctx, audit.Event{
				Type:      audit.TypeLockedAccountHit,
				Path:      r.URL.Path,
				Reason:    "locked account on admin API",
				IPAddress: getIPAddress(r),
			})
			respondError(w, http.StatusLocked, "Locked", "Account temporarily locked")
		default:
			slog.ErrorContext(ctx, "admin API session validation failed",
				logger.Path(r.URL.Path),
				logger.Error(err),
			)
			respondError(w, http.StatusInternalServerError, "Internal error", "Session validation failed")
		}
		return true
	}

	if strings.HasPrefix(r.URL.Path, "/api/admin/") && sess.Role == rbac.RoleStaff {
		d.denyPermission(w, r, sess, "administrative API requires admin role")
		return true
	}
	if perm := rbac.RequiredPermission(strings.TrimPrefix(r.URL.Path, "/api")); perm != "" && !sess.HasPermission(perm) {
		d.denyPermission(w, r, sess, "missing permission "+perm)
		return true
	}

	r2 := r.Clone(WithAdminSession(ctx, sess))
	setIdentityHeaders(r2, identityHeaders{
		businessID:  sess.BusinessID,
		userID:      sess.UserID,
		userRole:    string(sess.Role),
		sessionType: string(session.KindAdmin),
	})
	d.forward(w, r2)
	return true
}

func (d *Dispatcher) denyPermission(w http.ResponseWriter, r *http.Request, sess *session.AdminSession, reason string) {
	ctx := r.Context()
	d.audit.Log(ctx, audit.Event{
		Type:       audit.TypePermissionDenied,
		BusinessID: sess.BusinessID,
		ActorID:    sess.UserID,
		Path:       r.URL.Path,
		Reason:     reason,
		IPAddress:  getIPAddress(r),
	})
	d.metrics.Denials.Add(ctx, 1)
	respondError(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
}

func matchCriticalAPI(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/businesses") {
		return false
	}
	for _, prefix := range criticalAPIPrefixes {
		if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
			return true
		}
	}
	return false
}

// serveCriticalAPI rejects tenant-data APIs that arrive with no business
// context at all. Requests that do carry one fall through to the cookie
// gate below.
func (d *Dispatcher) serveCriticalAPI(w http.ResponseWriter, r *http.Request) bool {
	if hasBusinessContext(r) {
		return false
	}

	ctx := r.Context()
	d.audit.Log(ctx, audit.Event{
		Type:      audit.TypeInvalidBusinessRequest,
		Path:      r.URL.Path,
		Reason:    "tenant-data API without business context",
		IPAddress: getIPAddress(r),
	})
	d.metrics.Denials.Add(ctx, 1)
	respondError(w, http.StatusBadRequest, "Business context required", "Provide a business id in the path or businessId query parameter")
	return true
}

// hasBusinessContext reports whether the request names a business anywhere:
// a businessId query parameter, an x-business-id header, or a path segment
// after the resource.
func hasBusinessContext(r *http.Request) bool {
	if r.URL.Query().Get("businessId") != "" {
		return true
	}
	if r.Header.Get(headerBusinessID) != "" {
		return true
	}
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	return len(segments) >= 3 && segments[2] != ""
}

func (d *Dispatcher) serveTenantRewrite(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	bctx, err := d.resolver.Resolve(ctx, r.URL.Path)
	if err != nil {
		if errors.Is(err, business.ErrBusinessNotFound) {
			d.redirectInvalidBusiness(w, r)
			return true
		}
		d.failResolution(w, r, err)
		return true
	}
	if bctx == nil {
		return false
	}

	raw := d.rawCookie(r)
	p, perr := session.ParseCookie(raw)
	if perr != nil {
		d.metrics.Redirects.Add(ctx, 1)
		redirectToLogin(w, r, loginRedirect{
			Error:    "session-required",
			Message:  "Sign in to access this business.",
			Redirect: r.URL.Path,
		})
		return true
	}
	if p.BusinessID == "" {
		d.audit.Log(ctx, audit.Event{
			Type:       audit.TypeSessionValidationFailed,
			BusinessID: bctx.BusinessID,
			ActorID:    p.UserID,
			Path:       r.URL.Path,
			Reason:     "session cookie carries no business id",
			IPAddress:  getIPAddress(r),
		})
		d.metrics.Redirects.Add(ctx, 1)
		redirectToLogin(w, r, loginRedirect{
			Error:   "access-denied",
			Message: "You do not have access to this business.",
		})
		return true
	}
	if p.BusinessID != bctx.BusinessID {
		d.audit.Log(ctx, audit.Event{
			Type:       audit.TypeCrossTenantDenied,
			BusinessID: bctx.BusinessID,
			ActorID:    p.UserID,
			Path:       r.URL.Path,
			Reason:     "cookie business does not match path business",
			IPAddress:  getIPAddress(r),
		})
		d.metrics.Redirects.Add(ctx, 1)
		redirectToLogin(w, r, loginRedirect{
			Error:   "access-denied",
			Message: "You do not have access to this business.",
		})
		return true
	}

	// The cookie's claims are advisory. The store decides who this is
	// before anything is stamped into the trusted identity headers.
	sess, err := d.validator.ValidateAdmin(ctx, raw, bctx.BusinessID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession),
			errors.Is(err, session.ErrSessionInvalid),
			errors.Is(err, session.ErrSessionExpired):
			d.metrics.Redirects.Add(ctx, 1)
			redirectToLogin(w, r, loginRedirect{
				Error:    "session-required",
				Message:  "Sign in to access this business.",
				Redirect: r.URL.Path,
			})

		case errors.Is(err, session.ErrAccountLocked):
			d.audit.Log(ctx, audit.Event{
				Type:       audit.TypeLockedAccountHit,
				BusinessID: bctx.BusinessID,
				ActorID:    p.UserID,
				Path:       r.URL.Path,
				Reason:     "locked account on tenant path",
				IPAddress:  getIPAddress(r),
			})
			d.metrics.Redirects.Add(ctx, 1)
			redirectToLogin(w, r, loginRedirect{
				Error:   "account-locked",
				Message: "Account temporarily locked. Try again later.",
			})

		case errors.Is(err, session.ErrBusinessMismatch):
			d.audit.Log(ctx, audit.Event{
				Type:       audit.TypeCrossTenantDenied,
				BusinessID: bctx.BusinessID,
				ActorID:    p.UserID,
				Path:       r.URL.Path,
				Reason:     "session belongs to another business",
				IPAddress:  getIPAddress(r),
			})
			d.metrics.Redirects.Add(ctx, 1)
			redirectToLogin(w, r, loginRedirect{
				Error:   "access-denied",
				Message: "You do not have access to this business.",
			})

		default:
			slog.ErrorContext(ctx, "tenant session validation failed",
				logger.Path(r.URL.Path),
				logger.Error(err),
			)
			if isAPIPath(r.URL.Path) {
				d.metrics.Denials.Add(ctx, 1)
				respondError(w, http.StatusInternalServerError, "Internal error", "Session validation failed")
			} else {
				d.metrics.Redirects.Add(ctx, 1)
				redirectToLogin(w, r, loginRedirect{Error: "validation-error", Message: "Something went wrong. Try again."})
			}
		}
		return true
	}

	d.rewrite(w, r, bctx, identityHeaders{
		userID:      sess.UserID,
		userRole:    string(sess.Role),
		sessionType: string(session.KindAdmin),
	})
	return true
}

func (d *Dispatcher) serveClientRouteNoBusiness(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	d.metrics.Denials.Add(ctx, 1)
	respondError(w, http.StatusBadRequest, "Business context required", "Client routes must be scoped to a business")
	return true
}

// serveProtectedPrefix is the cookie-only gate for non-tenant protected
// surfaces. The claimed role decides with no store round trip; anything
// tenant-scoped was already handled above.
func (d *Dispatcher) serveProtectedPrefix(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()

	p, err := session.ParseCookie(d.rawCookie(r))
	if err != nil || p.Role == "" {
		if isAPIPath(r.URL.Path) {
			d.metrics.Denials.Add(ctx, 1)
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		} else {
			d.metrics.Redirects.Add(ctx, 1)
			redirectToLogin(w, r, loginRedirect{Redirect: r.URL.Path})
		}
		return true
	}

	role := rbac.Role(p.Role)
	if !role.Valid() {
		if isAPIPath(r.URL.Path) {
			d.metrics.Denials.Add(ctx, 1)
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid session")
		} else {
			d.metrics.Redirects.Add(ctx, 1)
			redirectToLogin(w, r, loginRedirect{Redirect: r.URL.Path})
		}
		return true
	}

	if role != rbac.RoleSuperAdmin {
		perm := rbac.RequiredPermission(strings.TrimPrefix(r.URL.Path, "/api"))
		if perm != "" && !rbac.HasPermission(role, perm) {
			if isAPIPath(r.URL.Path) {
				d.audit.Log(ctx, audit.Event{
					Type:      audit.TypePermissionDenied,
					ActorID:   p.UserID,
					Path:      r.URL.Path,
					Reason:    "missing permission " + perm,
					IPAddress: getIPAddress(r),
				})
				d.metrics.Denials.Add(ctx, 1)
				respondError(w, http.StatusForbidden, "Forbidden", "Insufficient permissions")
			} else {
				d.metrics.Redirects.Add(ctx, 1)
				http.Redirect(w, r, rbac.LandingPath(role), http.StatusFound)
			}
			return true
		}
	}

	r2 := r.Clone(ctx)
	setIdentityHeaders(r2, identityHeaders{
		businessID: p.BusinessID,
		userID:     p.UserID,
		userRole:   p.Role,
	})
	d.forward(w, r2)
	return true
}

// identityHeaders is what a rewrite stamps onto the outgoing request.
type identityHeaders struct {
	businessID  string
	userID      string
	userRole    string
	sessionType string
}

func setIdentityHeaders(r *http.Request, h identityHeaders) {
	if h.businessID != "" {
		r.Header.Set(headerBusinessID, h.businessID)
	}
	if h.userID != "" {
		r.Header.Set(headerUserID, h.userID)
	}
	if h.userRole != "" {
		r.Header.Set(headerUserRole, h.userRole)
	}
	if h.sessionType != "" {
		r.Header.Set(headerSessionType, h.sessionType)
	}
}

// rewrite swaps the tenant prefix out of the path and forwards with the
// business identity stamped on. The original URL stays in the request
// context for logging.
func (d *Dispatcher) rewrite(w http.ResponseWriter, r *http.Request, bctx *business.Context, h identityHeaders) {
	ctx := WithBusinessContext(r.Context(), bctx)

	r2 := r.Clone(ctx)
	r2.URL.Path = bctx.RemainingPath
	r2.URL.RawPath = ""
	r2.Header.Set(headerBusinessID, bctx.BusinessID)
	r2.Header.Set(headerBusinessSubdomain, bctx.Subdomain)
	if bctx.Business != nil {
		r2.Header.Set(headerBusinessName, bctx.Business.Name)
	}
	setIdentityHeaders(r2, h)

	slog.DebugContext(ctx, "request rewritten into tenant context",
		logger.BusinessID(bctx.BusinessID),
		logger.Subdomain(bctx.Subdomain),
		logger.Path(r.URL.Path),
		logger.RewrittenPath(bctx.RemainingPath),
	)

	d.metrics.Rewrites.Add(ctx, 1)
	d.upstream.ServeHTTP(w, r2)
}

func (d *Dispatcher) forward(w http.ResponseWriter, r *http.Request) {
	d.metrics.Passthroughs.Add(r.Context(), 1)
	d.upstream.ServeHTTP(w, r)
}

func (d *Dispatcher) redirectInvalidBusiness(w http.ResponseWriter, r *http.Request) {
	d.metrics.Redirects.Add(r.Context(), 1)
	redirectToLogin(w, r, loginRedirect{
		Error:   "invalid-business",
		Message: "This business does not exist or is inactive.",
	})
}

// failResolution is the unexpected-error surface: pages get a safe
// redirect, APIs a JSON 500. The request never reaches upstream.
func (d *Dispatcher) failResolution(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	slog.ErrorContext(ctx, "business resolution failed",
		logger.Path(r.URL.Path),
		logger.Error(err),
	)
	if isAPIPath(r.URL.Path) {
		d.metrics.Denials.Add(ctx, 1)
		respondError(w, http.StatusInternalServerError, "Internal error", "Business resolution failed")
		return
	}
	d.metrics.Redirects.Add(ctx, 1)
	redirectToLogin(w, r, loginRedirect{Error: "business-error", Message: "Something went wrong. Try again."})
}

// rawCookie returns the decoded session cookie value, or "".
func (d *Dispatcher) rawCookie(r *http.Request) string {
	c, err := r.Cookie(d.cookieName)
	if err != nil {
		return ""
	}
	if decoded, err := url.QueryUnescape(c.Value); err == nil {
		return decoded
	}
	return c.Value
}

func isPublicPath(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isLegacyBarePath(path string) bool {
	for _, bare := range legacyBarePaths {
		if path == bare || strings.HasPrefix(path, bare+"/") {
			return true
		}
	}
	return false
}

func isProtectedPath(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
