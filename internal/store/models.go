package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"experta/internal/domain"
)

// GORM models used for persistence. Conversion helpers keep domain types
// free of persistence tags.

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	FirstName    string `gorm:"not null"`
	LastName     string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Telephone    string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;index"`
	IsActive     bool   `gorm:"not null;index"`
	LastLogin    *time.Time

	ZoneIntervention datatypes.JSON
	TagsMetiers      datatypes.JSON
	NomEntreprise    string
	SiteWeb          string
	Siret            string
	NoteFiabilite    *float64

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type ProjetModel struct {
	ID               uint   `gorm:"primaryKey"`
	ClientID         uint   `gorm:"not null;index"`
	AmoID            *uint  `gorm:"index"`
	Statut           string `gorm:"not null;index"`
	Description      string `gorm:"not null"`
	Address          string `gorm:"not null"`
	City             string `gorm:"not null;index"`
	PostalCode       string `gorm:"not null"`
	Budget           *float64
	SurfaceM2        *int
	Bedrooms         *int
	HouseType        string
	HasLand          bool
	DateSoumission   *time.Time
	DateModification *time.Time
	IsActive         bool      `gorm:"not null;index"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (ProjetModel) TableName() string { return "projets" }

type MissionModel struct {
	ID             uint `gorm:"primaryKey"`
	ProjectID      uint `gorm:"not null;index"`
	TagsMetiers    datatypes.JSON
	CommentaireAMO string
	DateCreation   time.Time `gorm:"not null;index"`
	Statut         string    `gorm:"not null;index"`
	IsActive       bool      `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (MissionModel) TableName() string { return "missions" }

type DocumentModel struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        uint   `gorm:"not null;index"`
	Nom           string `gorm:"not null"`
	Type          string `gorm:"not null;index"`
	LienFichier   string `gorm:"not null"`
	TailleFichier int64
	FormatFichier string
	NomOriginal   string
	NomFichier    string
	MimeType      string `gorm:"index"`
	CheminFichier string
	IsActive      bool  `gorm:"not null;index"`
	ProjetID      *uint `gorm:"index"`
	AuthorType    string
	Visibilite    string    `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (DocumentModel) TableName() string { return "documents" }

func jsonStrings(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return datatypes.JSON(b)
}

func stringsFromJSON(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		Telephone:        u.Telephone,
		PasswordHash:     u.PasswordHash,
		Role:             string(u.Role),
		IsActive:         u.IsActive,
		LastLogin:        u.LastLogin,
		ZoneIntervention: jsonStrings(u.ZoneIntervention),
		TagsMetiers:      jsonStrings(u.TagsMetiers),
		NomEntreprise:    u.NomEntreprise,
		SiteWeb:          u.SiteWeb,
		Siret:            u.Siret,
		NoteFiabilite:    u.NoteFiabilite,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role, _ := domain.ParseRole(m.Role)
	return domain.User{
		ID:               m.ID,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		Email:            m.Email,
		Telephone:        m.Telephone,
		PasswordHash:     m.PasswordHash,
		Role:             role,
		IsActive:         m.IsActive,
		LastLogin:        m.LastLogin,
		ZoneIntervention: stringsFromJSON(m.ZoneIntervention),
		TagsMetiers:      stringsFromJSON(m.TagsMetiers),
		NomEntreprise:    m.NomEntreprise,
		SiteWeb:          m.SiteWeb,
		Siret:            m.Siret,
		NoteFiabilite:    m.NoteFiabilite,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func projetToModel(p domain.Projet) ProjetModel {
	return ProjetModel{
		ID:               p.ID,
		ClientID:         p.ClientID,
		AmoID:            p.AmoID,
		Statut:           string(p.Statut),
		Description:      p.Description,
		Address:          p.Address,
		City:             p.City,
		PostalCode:       p.PostalCode,
		Budget:           p.Budget,
		SurfaceM2:        p.SurfaceM2,
		Bedrooms:         p.Bedrooms,
		HouseType:        string(p.HouseType),
		HasLand:          p.HasLand,
		DateSoumission:   p.DateSoumission,
		DateModification: p.DateModification,
		IsActive:         p.IsActive,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func projetFromModel(m ProjetModel) domain.Projet {
	return domain.Projet{
		ID:               m.ID,
		ClientID:         m.ClientID,
		AmoID:            m.AmoID,
		Statut:           domain.ProjetStatut(m.Statut),
		Description:      m.Description,
		Address:          m.Address,
		City:             m.City,
		PostalCode:       m.PostalCode,
		Budget:           m.Budget,
		SurfaceM2:        m.SurfaceM2,
		Bedrooms:         m.Bedrooms,
		HouseType:        domain.HouseType(m.HouseType),
		HasLand:          m.HasLand,
		DateSoumission:   m.DateSoumission,
		DateModification: m.DateModification,
		IsActive:         m.IsActive,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func missionToModel(m domain.Mission) MissionModel {
	return MissionModel{
		ID:             m.ID,
		ProjectID:      m.ProjectID,
		TagsMetiers:    jsonStrings(m.TagsMetiers),
		CommentaireAMO: m.CommentaireAMO,
		DateCreation:   m.DateCreation,
		Statut:         string(m.Statut),
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func missionFromModel(m MissionModel) domain.Mission {
	return domain.Mission{
		ID:             m.ID,
		ProjectID:      m.ProjectID,
		TagsMetiers:    stringsFromJSON(m.TagsMetiers),
		CommentaireAMO: m.CommentaireAMO,
		DateCreation:   m.DateCreation,
		Statut:         domain.MissionStatut(m.Statut),
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func documentToModel(d domain.Document) DocumentModel {
	return DocumentModel{
		ID:            d.ID,
		UserID:        d.UserID,
		Nom:           d.Nom,
		Type:          string(d.Type),
		LienFichier:   d.LienFichier,
		TailleFichier: d.TailleFichier,
		FormatFichier: d.FormatFichier,
		NomOriginal:   d.NomOriginal,
		NomFichier:    d.NomFichier,
		MimeType:      d.MimeType,
		CheminFichier: d.CheminFichier,
		IsActive:      d.IsActive,
		ProjetID:      d.ProjetID,
		AuthorType:    string(d.AuthorType),
		Visibilite:    string(d.Visibilite),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func documentFromModel(m DocumentModel) domain.Document {
	return domain.Document{
		ID:            m.ID,
		UserID:        m.UserID,
		Nom:           m.Nom,
		Type:          domain.DocumentType(m.Type),
		LienFichier:   m.LienFichier,
		TailleFichier: m.TailleFichier,
		FormatFichier: m.FormatFichier,
		NomOriginal:   m.NomOriginal,
		NomFichier:    m.NomFichier,
		MimeType:      m.MimeType,
		CheminFichier: m.CheminFichier,
		IsActive:      m.IsActive,
		ProjetID:      m.ProjetID,
		AuthorType:    domain.Role(m.AuthorType),
		Visibilite:    domain.Visibilite(m.Visibilite),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
