package domain

import (
	"strings"
	"time"
)

// Role is the canonical user role. Values are lowercase everywhere; parse
// incoming strings with ParseRole so that legacy "AMO" spellings normalize.
type Role string

const (
	RoleClient     Role = "client"
	RoleAMO        Role = "amo"
	RolePartenaire Role = "partenaire"
	RoleAdmin      Role = "admin"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleClient:
		return RoleClient, true
	case RoleAMO:
		return RoleAMO, true
	case RolePartenaire:
		return RolePartenaire, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// IsProfessional reports whether the role carries professional profile fields.
func (r Role) IsProfessional() bool {
	return r == RoleAMO || r == RolePartenaire
}

// ProjetStatut is the project lifecycle status.
type ProjetStatut string

const (
	StatutBrouillon       ProjetStatut = "brouillon"
	StatutEnAttenteAMO    ProjetStatut = "en_attente_AMO"
	StatutEnMiseEnRelation ProjetStatut = "en_mise_en_relation"
	StatutDevisRecus      ProjetStatut = "devis_reçus"
	StatutCloture         ProjetStatut = "clôturé"
)

// ParseProjetStatut validates a project status string.
func ParseProjetStatut(s string) (ProjetStatut, bool) {
	switch ProjetStatut(s) {
	case StatutBrouillon, StatutEnAttenteAMO, StatutEnMiseEnRelation, StatutDevisRecus, StatutCloture:
		return ProjetStatut(s), true
	default:
		return "", false
	}
}

// MissionStatut is the mission lifecycle status.
type MissionStatut string

const (
	MissionEnAttente MissionStatut = "en_attente"
	MissionEnCours   MissionStatut = "en_cours"
	MissionTermine   MissionStatut = "terminé"
)

// ParseMissionStatut validates a mission status string.
func ParseMissionStatut(s string) (MissionStatut, bool) {
	switch MissionStatut(s) {
	case MissionEnAttente, MissionEnCours, MissionTermine:
		return MissionStatut(s), true
	default:
		return "", false
	}
}

// DocumentType is the business classification of a document.
type DocumentType string

const (
	DocContrat      DocumentType = "contrat"
	DocDevis        DocumentType = "devis"
	DocFacture      DocumentType = "facture"
	DocRapport      DocumentType = "rapport"
	DocPresentation DocumentType = "presentation"
	DocAutre        DocumentType = "autre"
)

// ParseDocumentType validates a document type string.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(s) {
	case DocContrat, DocDevis, DocFacture, DocRapport, DocPresentation, DocAutre:
		return DocumentType(s), true
	default:
		return "", false
	}
}

// Visibilite controls counterparty visibility of a document.
type Visibilite string

const (
	VisibilitePrive   Visibilite = "prive"
	VisibilitePartage Visibilite = "partage"
)

// HouseType enumerates the supported house layouts.
type HouseType string

const (
	HousePlainPied HouseType = "plain-pied"
	HouseEtage     HouseType = "étage"
	HouseAutre     HouseType = "autre"
)

// ParseHouseType validates a house type string.
func ParseHouseType(s string) (HouseType, bool) {
	switch HouseType(s) {
	case HousePlainPied, HouseEtage, HouseAutre:
		return HouseType(s), true
	default:
		return "", false
	}
}

// User is an account with an optional professional profile. Professional
// fields are nil/empty for client and admin roles.
type User struct {
	ID           uint       `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Telephone    string     `json:"telephone,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`

	ZoneIntervention []string `json:"zoneIntervention,omitempty"`
	TagsMetiers      []string `json:"tagsMetiers,omitempty"`
	NomEntreprise    string   `json:"nomEntreprise,omitempty"`
	SiteWeb          string   `json:"siteWeb,omitempty"`
	Siret            string   `json:"siret,omitempty"`
	NoteFiabilite    *float64 `json:"noteFiabilite,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClearProfessionalFields empties the profile fields that only make sense
// for AMO and partenaire accounts.
func (u *User) ClearProfessionalFields() {
	u.ZoneIntervention = nil
	u.TagsMetiers = nil
	u.NomEntreprise = ""
	u.SiteWeb = ""
	u.Siret = ""
	u.NoteFiabilite = nil
}

// Projet is a client's construction or renovation request.
type Projet struct {
	ID               uint         `json:"id"`
	ClientID         uint         `json:"clientId"`
	AmoID            *uint        `json:"amoId,omitempty"`
	Statut           ProjetStatut `json:"statut"`
	Description      string       `json:"description"`
	Address          string       `json:"address"`
	City             string       `json:"city"`
	PostalCode       string       `json:"postalCode"`
	Budget           *float64     `json:"budget,omitempty"`
	SurfaceM2        *int         `json:"surfaceM2,omitempty"`
	Bedrooms         *int         `json:"bedrooms,omitempty"`
	HouseType        HouseType    `json:"houseType,omitempty"`
	HasLand          bool         `json:"hasLand"`
	DateSoumission   *time.Time   `json:"dateSoumission,omitempty"`
	DateModification *time.Time   `json:"dateModification,omitempty"`
	IsActive         bool         `json:"isActive"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`

	Client   *User     `json:"client,omitempty"`
	Amo      *User     `json:"amo,omitempty"`
	Missions []Mission `json:"missions,omitempty"`
}

// Mission is a unit of work scoped to a project, tagged by trade.
type Mission struct {
	ID             uint          `json:"id"`
	ProjectID      uint          `json:"projectId"`
	TagsMetiers    []string      `json:"tagsMetiers"`
	CommentaireAMO string        `json:"commentaireAMO,omitempty"`
	DateCreation   time.Time     `json:"dateCreation"`
	Statut         MissionStatut `json:"statut"`
	IsActive       bool          `json:"isActive"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	Projet *Projet `json:"projet,omitempty"`
}

// NormalizeTag lowercases and trims a trade tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags normalizes and deduplicates a tag list, preserving order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// AddTagMetier appends a normalized tag if absent. Reports whether it was added.
func (m *Mission) AddTagMetier(tag string) bool {
	normalized := NormalizeTag(tag)
	if normalized == "" {
		return false
	}
	for _, existing := range m.TagsMetiers {
		if existing == normalized {
			return false
		}
	}
	m.TagsMetiers = append(m.TagsMetiers, normalized)
	return true
}

// RemoveTagMetier deletes a tag. Reports whether it was present.
func (m *Mission) RemoveTagMetier(tag string) bool {
	normalized := NormalizeTag(tag)
	out := m.TagsMetiers[:0]
	removed := false
	for _, existing := range m.TagsMetiers {
		if existing == normalized {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	m.TagsMetiers = out
	return removed
}

// Document is an uploaded or referenced file tied to a user and optionally
// a project.
type Document struct {
	ID            uint         `json:"id"`
	UserID        uint         `json:"userId"`
	Nom           string       `json:"nom"`
	Type          DocumentType `json:"type"`
	LienFichier   string       `json:"lienFichier"`
	TailleFichier int64        `json:"tailleFichier"`
	FormatFichier string       `json:"formatFichier,omitempty"`
	NomOriginal   string       `json:"nomOriginal,omitempty"`
	NomFichier    string       `json:"nomFichier,omitempty"`
	MimeType      string       `json:"mimeType,omitempty"`
	CheminFichier string       `json:"cheminFichier,omitempty"`
	IsActive      bool         `json:"isActive"`
	ProjetID      *uint        `json:"projetId,omitempty"`
	AuthorType    Role         `json:"authorType"`
	Visibilite    Visibilite   `json:"visibilite"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	User *User `json:"user,omitempty"`
}

// TagCount is an aggregated tag popularity entry.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// DocumentStats aggregates the documents visible to one caller.
type DocumentStats struct {
	Total     int64            `json:"total"`
	TotalSize int64            `json:"totalSize"`
	ByType    map[string]int64 `json:"byType"`
}
