package server

import (
	"net/http"
	"time"

	"experta/internal/domain"
	"experta/internal/store"
)

// Role-hidden dashboard endpoints. The routes answer 404 to everyone but
// the matching role, so these handlers can assume valid claims.

func (s *Server) handleAMODashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	brouillon := domain.StatutBrouillon
	_, available, err := s.app.ListProjets(store.ProjetFilter{Statut: &brouillon}, store.Page{Page: 1, Limit: 1})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	_, assigned, err := s.app.ListProjets(store.ProjetFilter{AmoID: &claims.UserID}, store.Page{Page: 1, Limit: 1})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{
		"projetsDisponibles": available,
		"projetsAssignes":    assigned,
	})
}

func (s *Server) handleAMOProjets(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	page := pageFromQuery(r)
	projets, total, err := s.app.ListProjets(store.ProjetFilter{AmoID: &claims.UserID}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewProjetViews(projets, time.Now()), page, total)
}

func (s *Server) handleAMOMissions(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	missions, total, err := s.app.ListMissions(store.MissionFilter{}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewMissionViews(missions, time.Now()), page, total)
}

// handleProfil serves both /api/amo/profil and /api/partenaire/profil.
func (s *Server) handleProfil(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	user, err := s.app.GetUser(claims.UserID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewUserView(user))
}

func (s *Server) handlePartnerDashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	user, err := s.app.GetUser(claims.UserID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	// Missions matching any of the partner's trades, one count per tag.
	perTag := make(map[string]int64, len(user.TagsMetiers))
	for _, tag := range user.TagsMetiers {
		_, total, err := s.app.ListMissions(store.MissionFilter{Tag: tag}, store.Page{Page: 1, Limit: 1})
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		perTag[tag] = total
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{
		"tagsMetiers":       user.TagsMetiers,
		"missionsParMetier": perTag,
		"zoneIntervention":  user.ZoneIntervention,
	})
}

func (s *Server) handlePartnerMissions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	user, err := s.app.GetUser(claims.UserID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	page := pageFromQuery(r)
	enAttente := domain.MissionEnAttente

	// Union over the partner's trades; missions matching several trades
	// appear once.
	seen := make(map[uint]struct{})
	matched := make([]domain.Mission, 0)
	for _, tag := range user.TagsMetiers {
		missions, _, err := s.app.ListMissions(store.MissionFilter{Tag: tag, Statut: &enAttente}, store.Page{})
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		for _, m := range missions {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			matched = append(matched, m)
		}
	}
	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	writePage(w, "", domain.NewMissionViews(matched[start:end], time.Now()), page, total)
}
