package server

import (
	"net/http"
	"strconv"
	"time"

	"experta/internal/app"
	"experta/internal/domain"
	"experta/internal/store"
)

type createMissionRequest struct {
	ProjectID      uint     `json:"projectId"`
	TagsMetiers    []string `json:"tagsMetiers"`
	CommentaireAMO string   `json:"commentaireAMO"`
	Statut         string   `json:"statut"`
}

type updateMissionRequest struct {
	TagsMetiers    *[]string `json:"tagsMetiers"`
	CommentaireAMO *string   `json:"commentaireAMO"`
	Statut         *string   `json:"statut"`
}

func (s *Server) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	mission, err := s.app.CreateMission(claimsFromRequest(r), app.CreateMissionInput{
		ProjectID:      req.ProjectID,
		TagsMetiers:    req.TagsMetiers,
		CommentaireAMO: req.CommentaireAMO,
		Statut:         req.Statut,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Mission créée", domain.NewMissionView(mission, time.Now()))
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	filter := store.MissionFilter{Tag: r.URL.Query().Get("tag")}
	if raw := r.URL.Query().Get("statut"); raw != "" {
		statut, ok := domain.ParseMissionStatut(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Le statut de la mission est invalide")
			return
		}
		filter.Statut = &statut
	}
	if raw := r.URL.Query().Get("projectId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Le filtre projectId est invalide")
			return
		}
		projectID := uint(id)
		filter.ProjectID = &projectID
	}
	page := pageFromQuery(r)
	missions, total, err := s.app.ListMissions(filter, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewMissionViews(missions, time.Now()), page, total)
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	mission, err := s.app.GetMission(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewMissionView(mission, time.Now()))
}

func (s *Server) handleUpdateMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	var req updateMissionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	mission, err := s.app.UpdateMission(claimsFromRequest(r), id, app.UpdateMissionInput{
		TagsMetiers:    req.TagsMetiers,
		CommentaireAMO: req.CommentaireAMO,
		Statut:         req.Statut,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Mission mise à jour", domain.NewMissionView(mission, time.Now()))
}

func (s *Server) handleDeleteMission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	if err := s.app.DeleteMission(claimsFromRequest(r), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Mission supprimée", nil)
}

func (s *Server) handleMissionsByProjet(w http.ResponseWriter, r *http.Request) {
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
	if !canViewProjet(claimsFromRequest(r), projet) {
		writeError(w, http.StatusForbidden, "Accès non autorisé")
		return
	}
	page := pageFromQuery(r)
	missions, total, err := s.app.ListMissions(store.MissionFilter{ProjectID: &id}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewMissionViews(missions, time.Now()), page, total)
}

func (s *Server) handleMissionsByStatus(w http.ResponseWriter, r *http.Request) {
	statut, ok := domain.ParseMissionStatut(r.PathValue("statut"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Le statut de la mission est invalide")
		return
	}
	page := pageFromQuery(r)
	missions, total, err := s.app.ListMissions(store.MissionFilter{Statut: &statut}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewMissionViews(missions, time.Now()), page, total)
}

func (s *Server) handleMissionsByTag(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	missions, total, err := s.app.ListMissions(store.MissionFilter{Tag: r.PathValue("tag")}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewMissionViews(missions, time.Now()), page, total)
}

func (s *Server) handlePopularMissionTags(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tags, err := s.app.PopularMissionTags(limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", tags)
}

func (s *Server) handleAddMissionTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	var req tagRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	mission, err := s.app.AddMissionTag(claimsFromRequest(r), id, req.Tag)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Tag ajouté", domain.NewMissionView(mission, time.Now()))
}

func (s *Server) handleRemoveMissionTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	mission, err := s.app.RemoveMissionTag(claimsFromRequest(r), id, r.PathValue("tag"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Tag supprimé", domain.NewMissionView(mission, time.Now()))
}
