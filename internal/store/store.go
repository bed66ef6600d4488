// Package store persists marketplace data behind a narrow interface so the
// application layer can run against Postgres, SQLite or an in-memory fake.
package store

import (
	"context"
	"time"

	"experta/internal/domain"
)

// Page is an offset pagination request. A Limit <= 0 disables pagination
// and returns the full result set.
type Page struct {
	Page  int
	Limit int
}

// Offset computes the row offset for the page.
func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role     *domain.Role
	IsActive *bool
}

// ProjetFilter narrows project listings.
type ProjetFilter struct {
	Statut   *domain.ProjetStatut
	ClientID *uint
	AmoID    *uint
	City     string
}

// MissionFilter narrows mission listings.
type MissionFilter struct {
	ProjectID *uint
	Statut    *domain.MissionStatut
	Tag       string
}

// DocumentFilter narrows document metadata listings.
type DocumentFilter struct {
	UserID   *uint
	Type     *domain.DocumentType
	MimeType string
	ProjetID *uint
}

// Store is the persistence contract for the whole service. Implementations
// must be safe for concurrent use.
type Store interface {
	// Users.
	CreateUser(u *domain.User) error
	GetUserByID(id uint) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	ListUsers(f UserFilter, p Page) ([]domain.User, int64, error)
	UpdateUser(u domain.User) error
	DeleteUser(id uint) error
	CountAdmins() (int64, error)
	TouchLastLogin(id uint, at time.Time) error
	ListProfessionalsByTag(role domain.Role, tag string, p Page) ([]domain.User, int64, error)
	ListProfessionalsByZone(role domain.Role, zone string, p Page) ([]domain.User, int64, error)
	ListTopRated(role domain.Role, limit int) ([]domain.User, error)
	ListAMOsMatchingZone(postalCode, city string) ([]domain.User, error)
	PopularUserTags(limit int) ([]domain.TagCount, error)

	// Projets.
	CreateProjet(p *domain.Projet) error
	GetProjetByID(id uint) (domain.Projet, bool, error)
	ListProjets(f ProjetFilter, p Page) ([]domain.Projet, int64, error)
	UpdateProjet(p domain.Projet) error
	SoftDeleteProjet(id uint) error
	// ClaimProjet atomically assigns an AMO to an unclaimed draft project.
	// It reports false when another AMO won the race or the project is not
	// claimable.
	ClaimProjet(projetID, amoID uint, at time.Time) (bool, error)

	// Missions.
	CreateMission(m *domain.Mission) error
	GetMissionByID(id uint) (domain.Mission, bool, error)
	ListMissions(f MissionFilter, p Page) ([]domain.Mission, int64, error)
	UpdateMission(m domain.Mission) error
	SoftDeleteMission(id uint) error
	PopularMissionTags(limit int) ([]domain.TagCount, error)

	// Documents.
	CreateDocuments(docs []*domain.Document) error
	GetDocumentByID(id uint) (domain.Document, bool, error)
	ListDocuments(f DocumentFilter, p Page) ([]domain.Document, int64, error)
	// ListVisibleDocuments returns the caller's own active documents plus
	// counterparty documents shared on an active project linking both users.
	ListVisibleDocuments(userID uint, role domain.Role, mimeType string, p Page) ([]domain.Document, int64, error)
	UpdateDocument(d domain.Document) error
	SoftDeleteDocument(id uint) error
	// HasActiveProjetLink reports whether an active project pairs the given
	// client and AMO.
	HasActiveProjetLink(clientID, amoID uint) (bool, error)

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error
}
