package server

import (
	"net/http"
	"time"

	"experta/internal/app"
	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/ratelimit"
	"experta/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App         *app.App
	Tokens      *auth.TokenIssuer
	Development bool

	RedisAddr                string
	RedisPassword            string
	LoginRateLimitPerMinute  int
	SignupRateLimitPerMinute int
	TrustedProxyCIDRs        []string
}

// Server exposes the REST API.
type Server struct {
	app            *app.App
	tokens         *auth.TokenIssuer
	mux            *http.ServeMux
	development    bool
	trustedProxies *util.TrustedProxies
	loginLimiter   *ratelimit.FixedWindowLimiter
	signupLimiter  *ratelimit.FixedWindowLimiter
	startedAt      time.Time
}

// New constructs the server with routes configured. Rate limiting is only
// active when a Redis address is configured.
func New(cfg Config) (*Server, error) {
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:            cfg.App,
		tokens:         cfg.Tokens,
		mux:            http.NewServeMux(),
		development:    cfg.Development,
		trustedProxies: trusted,
		startedAt:      time.Now(),
	}
	if cfg.RedisAddr != "" {
		loginLimit := cfg.LoginRateLimitPerMinute
		if loginLimit <= 0 {
			loginLimit = 10
		}
		signupLimit := cfg.SignupRateLimitPerMinute
		if signupLimit <= 0 {
			signupLimit = 5
		}
		s.loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "experta:ratelimit:login", loginLimit, time.Minute)
		if err != nil {
			return nil, err
		}
		s.signupLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "experta:ratelimit:signup", signupLimit, time.Minute)
		if err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the ambient middleware.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// auth
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/register/amo", s.handleRegisterAMO)
	s.mux.HandleFunc("POST /api/auth/register/partenaire", s.handleRegisterPartner)
	s.mux.HandleFunc("GET /api/auth/me", s.authenticate(s.handleMe))

	// users — login and professional signup answer on the account-scoped
	// paths too
	s.mux.HandleFunc("GET /api/users", s.requireRole(s.handleListUsers, domain.RoleAdmin))
	s.mux.HandleFunc("POST /api/users", s.optionalAuthenticate(s.handleCreateUser))
	s.mux.HandleFunc("POST /api/users/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/users/register-amo", s.handleRegisterAMO)
	s.mux.HandleFunc("POST /api/users/register-partner", s.handleRegisterPartner)
	s.mux.HandleFunc("GET /api/users/tags/populaires", s.handlePopularUserTags)
	s.mux.HandleFunc("GET /api/users/professionnels/tag/{tag}", s.handleProfessionalsByTag)
	s.mux.HandleFunc("GET /api/users/professionnels/zone/{zone}", s.handleProfessionalsByZone)
	s.mux.HandleFunc("GET /api/users/professionnels/top", s.handleTopProfessionals)
	s.mux.HandleFunc("GET /api/users/{id}", s.authenticate(s.handleGetUser))
	s.mux.HandleFunc("PUT /api/users/{id}", s.authenticate(s.handleUpdateUser))
	s.mux.HandleFunc("DELETE /api/users/{id}", s.authenticate(s.handleDeleteUser))
	s.mux.HandleFunc("POST /api/users/{id}/tags", s.authenticate(s.handleAddUserTag))
	s.mux.HandleFunc("DELETE /api/users/{id}/tags/{tag}", s.authenticate(s.handleRemoveUserTag))

	// projets
	s.mux.HandleFunc("GET /api/projets", s.authenticate(s.handleListProjets))
	s.mux.HandleFunc("POST /api/projets", s.clientOrAnonymous(s.handleCreateProjet))
	s.mux.HandleFunc("GET /api/projets/{id}", s.authenticate(s.handleGetProjet))
	s.mux.HandleFunc("PUT /api/projets/{id}", s.authenticate(s.handleUpdateProjet))
	s.mux.HandleFunc("DELETE /api/projets/{id}", s.authenticate(s.handleDeleteProjet))
	s.mux.HandleFunc("POST /api/projets/{id}/accepter", s.requireRole(s.handleAcceptProjet, domain.RoleAMO))
	s.mux.HandleFunc("GET /api/projets/client/{id}", s.authenticate(s.handleProjetsByClient))
	s.mux.HandleFunc("GET /api/projets/amo/{id}", s.authenticate(s.handleProjetsByAMO))
	s.mux.HandleFunc("GET /api/projets/statut/{statut}", s.requireRole(s.handleProjetsByStatus, domain.RoleAMO, domain.RoleAdmin))

	// missions
	s.mux.HandleFunc("GET /api/missions", s.requireRole(s.handleListMissions, domain.RoleAMO, domain.RoleAdmin))
	s.mux.HandleFunc("POST /api/missions", s.requireRole(s.handleCreateMission, domain.RoleAMO, domain.RoleAdmin))
	s.mux.HandleFunc("GET /api/missions/tags/populaires", s.handlePopularMissionTags)
	s.mux.HandleFunc("GET /api/missions/projet/{id}", s.authenticate(s.handleMissionsByProjet))
	s.mux.HandleFunc("GET /api/missions/statut/{statut}", s.requireRole(s.handleMissionsByStatus, domain.RoleAMO, domain.RoleAdmin))
	s.mux.HandleFunc("GET /api/missions/tag/{tag}", s.requireRole(s.handleMissionsByTag, domain.RoleAMO, domain.RoleAdmin))
	s.mux.HandleFunc("GET /api/missions/{id}", s.authenticate(s.handleGetMission))
	s.mux.HandleFunc("PUT /api/missions/{id}", s.requireRole(s.handleUpdateMission, domain.RoleAMO, domain.RoleAdmin))
	s.mux.HandleFunc("DELETE /api/missions/{id}", s.requireRole(s.handleDeleteMission, domain.RoleAMO, domain.RoleAdmin))
	s.mux.HandleFunc("POST /api/missions/{id}/tags", s.requireRole(s.handleAddMissionTag, domain.RoleAMO, domain.RoleAdmin))
	s.mux.HandleFunc("DELETE /api/missions/{id}/tags/{tag}", s.requireRole(s.handleRemoveMissionTag, domain.RoleAMO, domain.RoleAdmin))

	// personal document pipeline
	s.mux.HandleFunc("POST /api/mes-documents/upload", s.authenticate(s.handleUploadDocuments))
	s.mux.HandleFunc("GET /api/mes-documents", s.authenticate(s.handleListMyDocuments))
	s.mux.HandleFunc("GET /api/mes-documents/{id}", s.authenticate(s.handleGetMyDocument))
	s.mux.HandleFunc("GET /api/mes-documents/{id}/download", s.authenticate(s.handleDownloadDocument))
	s.mux.HandleFunc("DELETE /api/mes-documents/{id}", s.authenticate(s.handleDeleteMyDocument))

	// admin document metadata
	s.mux.HandleFunc("GET /api/documents", s.requireRole(s.handleListDocuments, domain.RoleAdmin))
	s.mux.HandleFunc("POST /api/documents", s.requireRole(s.handleCreateDocumentMeta, domain.RoleAdmin))
	s.mux.HandleFunc("GET /api/documents/user/{id}", s.requireRole(s.handleDocumentsByUser, domain.RoleAdmin))
	s.mux.HandleFunc("GET /api/documents/type/{type}", s.requireRole(s.handleDocumentsByType, domain.RoleAdmin))
	s.mux.HandleFunc("GET /api/documents/{id}", s.requireRole(s.handleGetDocumentMeta, domain.RoleAdmin))
	s.mux.HandleFunc("PUT /api/documents/{id}", s.requireRole(s.handleUpdateDocumentMeta, domain.RoleAdmin))
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.requireRole(s.handleDeleteDocumentMeta, domain.RoleAdmin))

	// role-hidden dashboards
	s.mux.HandleFunc("GET /api/amo/dashboard", s.requireRoleHidden(s.handleAMODashboard, domain.RoleAMO))
	s.mux.HandleFunc("GET /api/amo/mes-projets", s.requireRoleHidden(s.handleAMOProjets, domain.RoleAMO))
	s.mux.HandleFunc("GET /api/amo/gestion-missions", s.requireRoleHidden(s.handleAMOMissions, domain.RoleAMO))
	s.mux.HandleFunc("GET /api/amo/profil", s.requireRoleHidden(s.handleProfil, domain.RoleAMO))
	s.mux.HandleFunc("GET /api/partenaire/dashboard", s.requireRoleHidden(s.handlePartnerDashboard, domain.RolePartenaire))
	s.mux.HandleFunc("GET /api/partenaire/missions-disponibles", s.requireRoleHidden(s.handlePartnerMissions, domain.RolePartenaire))
	s.mux.HandleFunc("GET /api/partenaire/profil", s.requireRoleHidden(s.handleProfil, domain.RolePartenaire))
}

// handleRoot reports API status and live database readiness; there is no
// cached "initialized" flag, the store is pinged on every call.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := s.app.Store().Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
	}
	writeSuccess(w, http.StatusOK, "API Experta", map[string]any{
		"service":  "experta",
		"database": dbStatus,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	status := http.StatusOK
	if err := s.app.Store().Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":         dbStatus,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}
