package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/ratelimit"
	"experta/internal/sanitize"
	"experta/internal/store"
	"experta/internal/util"
)

type claimsContextKey struct{}

const maxJSONBody = 1 << 20

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func claimsFromRequest(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsContextKey{}).(*auth.Claims)
	return claims
}

func withClaims(r *http.Request, claims *auth.Claims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
}

// authenticate requires a valid bearer token: 401 when the credential is
// missing, 403 when it does not verify.
func (s *Server) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token d'authentification requis")
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusForbidden, "Token invalide ou expiré")
			return
		}
		next(w, withClaims(r, claims))
	}
}

// optionalAuthenticate attaches claims when a valid token is present and
// continues anonymously otherwise.
func (s *Server) optionalAuthenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if claims, err := s.tokens.Verify(token); err == nil {
				r = withClaims(r, claims)
			}
		}
		next(w, r)
	}
}

// requireRole gates a handler to the listed roles with a plain 403.
func (s *Server) requireRole(next http.HandlerFunc, roles ...domain.Role) http.HandlerFunc {
	return s.authenticate(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromRequest(r)
		for _, role := range roles {
			if claims.Role == role {
				next(w, r)
				return
			}
		}
		writeError(w, http.StatusForbidden, "Accès non autorisé")
	})
}

// requireRoleHidden gates a handler like requireRole but answers 404 on
// every failure so the route's existence is not revealed.
func (s *Server) requireRoleHidden(next http.HandlerFunc, roles ...domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusNotFound, "Route non trouvée")
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusNotFound, "Route non trouvée")
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				next(w, withClaims(r, claims))
				return
			}
		}
		writeError(w, http.StatusNotFound, "Route non trouvée")
	}
}

// clientOrAnonymous admits unauthenticated callers and authenticated
// clients; other authenticated roles are rejected.
func (s *Server) clientOrAnonymous(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next(w, r)
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusForbidden, "Token invalide ou expiré")
			return
		}
		if claims.Role != domain.RoleClient {
			writeError(w, http.StatusForbidden, "Réservé aux clients ou aux visiteurs")
			return
		}
		next(w, withClaims(r, claims))
	}
}

// decodeBody decodes a JSON body into dst after recursively sanitizing
// every string value. Sanitization is fail-open: when the generic pass
// cannot be applied the raw body is decoded directly.
func decodeBody(r *http.Request, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	cleaned, err := json.Marshal(sanitize.Value(generic))
	if err != nil {
		return json.Unmarshal(raw, dst)
	}
	return json.Unmarshal(cleaned, dst)
}

// allowRate applies a limiter when one is configured. Keyed by client IP.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	if limiter.Allow(util.ClientIP(r, s.trustedProxies)) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

// pageFromQuery reads page/limit with the historical defaults.
func pageFromQuery(r *http.Request) store.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return store.Page{Page: page, Limit: limit}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uint, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
