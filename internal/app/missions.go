package app

import (
	"fmt"
	"strings"

	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/store"
)

// CreateMissionInput is the mission creation payload.
type CreateMissionInput struct {
	ProjectID      uint
	TagsMetiers    []string
	CommentaireAMO string
	Statut         string
}

// UpdateMissionInput carries optional mission updates; nil means unchanged.
type UpdateMissionInput struct {
	TagsMetiers    *[]string
	CommentaireAMO *string
	Statut         *string
}

func canManageMissions(caller *auth.Claims) bool {
	return caller != nil && (caller.Role == domain.RoleAMO || caller.Role == domain.RoleAdmin)
}

// CreateMission opens a mission on an existing active project. AMO and
// admin callers only.
func (a *App) CreateMission(caller *auth.Claims, in CreateMissionInput) (domain.Mission, error) {
	if !canManageMissions(caller) {
		return domain.Mission{}, ErrForbidden
	}
	if _, err := a.GetProjet(in.ProjectID); err != nil {
		return domain.Mission{}, err
	}
	if len(in.CommentaireAMO) > 2000 {
		return domain.Mission{}, invalid("Le commentaire AMO ne peut pas dépasser 2000 caractères")
	}
	statut := domain.MissionEnAttente
	if strings.TrimSpace(in.Statut) != "" {
		parsed, ok := domain.ParseMissionStatut(in.Statut)
		if !ok {
			return domain.Mission{}, invalid("Le statut de la mission est invalide")
		}
		statut = parsed
	}
	mission := domain.Mission{
		ProjectID:      in.ProjectID,
		TagsMetiers:    domain.NormalizeTags(in.TagsMetiers),
		CommentaireAMO: strings.TrimSpace(in.CommentaireAMO),
		DateCreation:   a.now(),
		Statut:         statut,
		IsActive:       true,
	}
	if err := a.store.CreateMission(&mission); err != nil {
		return domain.Mission{}, fmt.Errorf("create mission: %w", err)
	}
	return mission, nil
}

// GetMission returns one active mission.
func (a *App) GetMission(id uint) (domain.Mission, error) {
	mission, ok, err := a.store.GetMissionByID(id)
	if err != nil {
		return domain.Mission{}, fmt.Errorf("get mission: %w", err)
	}
	if !ok || !mission.IsActive {
		return domain.Mission{}, ErrMissionNotFound
	}
	return mission, nil
}

// ListMissions returns active missions matching the filter.
func (a *App) ListMissions(f store.MissionFilter, p store.Page) ([]domain.Mission, int64, error) {
	return a.store.ListMissions(f, p)
}

// UpdateMission applies a partial update. AMO and admin callers only.
func (a *App) UpdateMission(caller *auth.Claims, id uint, in UpdateMissionInput) (domain.Mission, error) {
	if !canManageMissions(caller) {
		return domain.Mission{}, ErrForbidden
	}
	mission, err := a.GetMission(id)
	if err != nil {
		return domain.Mission{}, err
	}
	if in.TagsMetiers != nil {
		mission.TagsMetiers = domain.NormalizeTags(*in.TagsMetiers)
	}
	if in.CommentaireAMO != nil {
		if len(*in.CommentaireAMO) > 2000 {
			return domain.Mission{}, invalid("Le commentaire AMO ne peut pas dépasser 2000 caractères")
		}
		mission.CommentaireAMO = strings.TrimSpace(*in.CommentaireAMO)
	}
	if in.Statut != nil {
		statut, ok := domain.ParseMissionStatut(*in.Statut)
		if !ok {
			return domain.Mission{}, invalid("Le statut de la mission est invalide")
		}
		mission.Statut = statut
	}
	if err := a.store.UpdateMission(mission); err != nil {
		return domain.Mission{}, fmt.Errorf("update mission: %w", err)
	}
	return a.GetMission(id)
}

// DeleteMission soft-deletes a mission. AMO and admin callers only.
func (a *App) DeleteMission(caller *auth.Claims, id uint) error {
	if !canManageMissions(caller) {
		return ErrForbidden
	}
	if _, err := a.GetMission(id); err != nil {
		return err
	}
	if err := a.store.SoftDeleteMission(id); err != nil {
		return fmt.Errorf("delete mission: %w", err)
	}
	return nil
}

// AddMissionTag appends a normalized trade tag to a mission.
func (a *App) AddMissionTag(caller *auth.Claims, id uint, tag string) (domain.Mission, error) {
	return a.mutateMissionTags(caller, id, tag, true)
}

// RemoveMissionTag removes a trade tag from a mission.
func (a *App) RemoveMissionTag(caller *auth.Claims, id uint, tag string) (domain.Mission, error) {
	return a.mutateMissionTags(caller, id, tag, false)
}

func (a *App) mutateMissionTags(caller *auth.Claims, id uint, tag string, add bool) (domain.Mission, error) {
	if !canManageMissions(caller) {
		return domain.Mission{}, ErrForbidden
	}
	if domain.NormalizeTag(tag) == "" {
		return domain.Mission{}, invalid("Le tag métier est requis")
	}
	mission, err := a.GetMission(id)
	if err != nil {
		return domain.Mission{}, err
	}
	if add {
		mission.AddTagMetier(tag)
	} else {
		mission.RemoveTagMetier(tag)
	}
	if err := a.store.UpdateMission(mission); err != nil {
		return domain.Mission{}, fmt.Errorf("update mission: %w", err)
	}
	return a.GetMission(id)
}

// PopularMissionTags aggregates trade tag usage across active missions.
func (a *App) PopularMissionTags(limit int) ([]domain.TagCount, error) {
	return a.store.PopularMissionTags(limit)
}
