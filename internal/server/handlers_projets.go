package server

import (
	"net/http"
	"strconv"
	"time"

	"experta/internal/app"
	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/store"
)

type createProjetRequest struct {
	Description string   `json:"description"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	PostalCode  string   `json:"postalCode"`
	Budget      *float64 `json:"budget"`
	SurfaceM2   *int     `json:"surfaceM2"`
	Bedrooms    *int     `json:"bedrooms"`
	HouseType   string   `json:"houseType"`
	HasLand     bool     `json:"hasLand"`

	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Telephone string `json:"telephone"`
}

type updateProjetRequest struct {
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	PostalCode  *string  `json:"postalCode"`
	Budget      *float64 `json:"budget"`
	SurfaceM2   *int     `json:"surfaceM2"`
	Bedrooms    *int     `json:"bedrooms"`
	HouseType   *string  `json:"houseType"`
	HasLand     *bool    `json:"hasLand"`
	Statut      *string  `json:"statut"`
	AmoID       *uint    `json:"amoId"`
}

func (s *Server) handleCreateProjet(w http.ResponseWriter, r *http.Request) {
	var req createProjetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	projet, err := s.app.CreateProjet(claimsFromRequest(r), app.CreateProjetInput{
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Budget:      req.Budget,
		SurfaceM2:   req.SurfaceM2,
		Bedrooms:    req.Bedrooms,
		HouseType:   req.HouseType,
		HasLand:     req.HasLand,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Telephone:   req.Telephone,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Projet soumis avec succès", domain.NewProjetView(projet, time.Now()))
}

func (s *Server) handleListProjets(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	filter := store.ProjetFilter{City: r.URL.Query().Get("city")}
	if raw := r.URL.Query().Get("statut"); raw != "" {
		statut, ok := domain.ParseProjetStatut(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Le statut du projet est invalide")
			return
		}
		filter.Statut = &statut
	}
	if raw := r.URL.Query().Get("clientId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Le filtre clientId est invalide")
			return
		}
		clientID := uint(id)
		filter.ClientID = &clientID
	}
	if raw := r.URL.Query().Get("amoId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Le filtre amoId est invalide")
			return
		}
		amoID := uint(id)
		filter.AmoID = &amoID
	}
	switch claims.Role {
	case domain.RoleClient:
		// Clients only ever see their own projects.
		own := claims.UserID
		filter.ClientID = &own
	case domain.RoleAMO, domain.RoleAdmin:
	default:
		writeError(w, http.StatusForbidden, "Accès non autorisé")
		return
	}
	page := pageFromQuery(r)
	projets, total, err := s.app.ListProjets(filter, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewProjetViews(projets, time.Now()), page, total)
}

func canViewProjet(claims *auth.Claims, projet domain.Projet) bool {
	switch claims.Role {
	case domain.RoleAdmin, domain.RoleAMO:
		return true
	case domain.RoleClient:
		return projet.ClientID == claims.UserID
	default:
		return false
	}
}

func (s *Server) handleGetProjet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	projet, err := s.app.GetProjet(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	claims := claimsFromRequest(r)
	if !canViewProjet(claims, projet) {
		writeError(w, http.StatusForbidden, "Accès non autorisé")
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewProjetView(projet, time.Now()))
}

func (s *Server) handleUpdateProjet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	var req updateProjetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	projet, err := s.app.UpdateProjet(claimsFromRequest(r), id, app.UpdateProjetInput{
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Budget:      req.Budget,
		SurfaceM2:   req.SurfaceM2,
		Bedrooms:    req.Bedrooms,
		HouseType:   req.HouseType,
		HasLand:     req.HasLand,
		Statut:      req.Statut,
		AmoID:       req.AmoID,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Projet mis à jour", domain.NewProjetView(projet, time.Now()))
}

func (s *Server) handleDeleteProjet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	if err := s.app.DeleteProjet(claimsFromRequest(r), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Projet supprimé", nil)
}

func (s *Server) handleAcceptProjet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	projet, err := s.app.AcceptProjet(claimsFromRequest(r), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Projet pris en charge", domain.NewProjetView(projet, time.Now()))
}

func (s *Server) handleProjetsByClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	claims := claimsFromRequest(r)
	if claims.Role == domain.RoleClient && claims.UserID != id {
		writeError(w, http.StatusForbidden, "Accès non autorisé")
		return
	}
	page := pageFromQuery(r)
	projets, total, err := s.app.ListProjets(store.ProjetFilter{ClientID: &id}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewProjetViews(projets, time.Now()), page, total)
}

func (s *Server) handleProjetsByAMO(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	claims := claimsFromRequest(r)
	if claims.Role != domain.RoleAdmin && !(claims.Role == domain.RoleAMO && claims.UserID == id) {
		writeError(w, http.StatusForbidden, "Accès non autorisé")
		return
	}
	page := pageFromQuery(r)
	projets, total, err := s.app.ListProjets(store.ProjetFilter{AmoID: &id}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewProjetViews(projets, time.Now()), page, total)
}

func (s *Server) handleProjetsByStatus(w http.ResponseWriter, r *http.Request) {
	statut, ok := domain.ParseProjetStatut(r.PathValue("statut"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Le statut du projet est invalide")
		return
	}
	page := pageFromQuery(r)
	projets, total, err := s.app.ListProjets(store.ProjetFilter{Statut: &statut}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewProjetViews(projets, time.Now()), page, total)
}
