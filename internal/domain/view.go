package domain

import (
	"fmt"
	"math"
	"path"
	"strings"
	"time"
)

// View projections are computed at serialization time, never stored. They
// decorate entities with derived fields the API exposes alongside the raw
// columns.

// UserView is a User plus derived presentation fields.
type UserView struct {
	User
	FullName string `json:"fullName"`
}

// NewUserView builds the projection for one user.
func NewUserView(u User) UserView {
	return UserView{
		User:     u,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

// NewUserViews projects a slice of users.
func NewUserViews(users []User) []UserView {
	out := make([]UserView, len(users))
	for i, u := range users {
		out[i] = NewUserView(u)
	}
	return out
}

// ProjetView is a Projet plus derived presentation fields.
type ProjetView struct {
	Projet
	FullAddress     string `json:"fullAddress"`
	FormattedBudget string `json:"formattedBudget,omitempty"`
	IsInProgress    bool   `json:"isInProgress"`
	IsCompleted     bool   `json:"isCompleted"`
	DurationDays    *int   `json:"projectDuration,omitempty"`
}

// NewProjetView builds the projection for one project.
func NewProjetView(p Projet, now time.Time) ProjetView {
	v := ProjetView{
		Projet:       p,
		FullAddress:  fmt.Sprintf("%s, %s %s", p.Address, p.PostalCode, p.City),
		IsInProgress: p.Statut == StatutEnMiseEnRelation || p.Statut == StatutDevisRecus,
		IsCompleted:  p.Statut == StatutCloture,
	}
	if p.Budget != nil {
		v.FormattedBudget = fmt.Sprintf("%.2f €", *p.Budget)
	}
	if p.DateSoumission != nil {
		end := now
		if v.IsCompleted {
			end = p.UpdatedAt
		}
		days := daysBetween(*p.DateSoumission, end)
		v.DurationDays = &days
	}
	return v
}

// NewProjetViews projects a slice of projects.
func NewProjetViews(projets []Projet, now time.Time) []ProjetView {
	out := make([]ProjetView, len(projets))
	for i, p := range projets {
		out[i] = NewProjetView(p, now)
	}
	return out
}

// MissionView is a Mission plus derived presentation fields.
type MissionView struct {
	Mission
	IsInProgress bool `json:"isInProgress"`
	IsCompleted  bool `json:"isCompleted"`
	TagsCount    int  `json:"tagsCount"`
	DurationDays int  `json:"missionDuration"`
}

// NewMissionView builds the projection for one mission.
func NewMissionView(m Mission, now time.Time) MissionView {
	v := MissionView{
		Mission:      m,
		IsInProgress: m.Statut == MissionEnCours,
		IsCompleted:  m.Statut == MissionTermine,
		TagsCount:    len(m.TagsMetiers),
	}
	end := now
	if v.IsCompleted {
		end = m.UpdatedAt
	}
	v.DurationDays = daysBetween(m.DateCreation, end)
	return v
}

// NewMissionViews projects a slice of missions.
func NewMissionViews(missions []Mission, now time.Time) []MissionView {
	out := make([]MissionView, len(missions))
	for i, m := range missions {
		out[i] = NewMissionView(m, now)
	}
	return out
}

// DocumentView is a Document plus derived presentation fields.
type DocumentView struct {
	Document
	FileExtension    string `json:"fileExtension"`
	FormattedSize    string `json:"formattedSize"`
	IsPDF            bool   `json:"isPDF"`
	ReadableFileType string `json:"readableFileType"`
}

// NewDocumentView builds the projection for one document.
func NewDocumentView(d Document) DocumentView {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(d.LienFichier), "."))
	return DocumentView{
		Document:         d,
		FileExtension:    ext,
		FormattedSize:    FormatBytes(d.TailleFichier),
		IsPDF:            ext == "pdf" || d.MimeType == "application/pdf",
		ReadableFileType: readableFileType(ext),
	}
}

// NewDocumentViews projects a slice of documents.
func NewDocumentViews(docs []Document) []DocumentView {
	out := make([]DocumentView, len(docs))
	for i, d := range docs {
		out[i] = NewDocumentView(d)
	}
	return out
}

// FormatBytes renders a byte count with binary units, two decimals.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	exp := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if exp >= len(units) {
		exp = len(units) - 1
	}
	if exp == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", float64(n)/math.Pow(1024, float64(exp)), units[exp])
}

func readableFileType(ext string) string {
	switch ext {
	case "pdf":
		return "Document PDF"
	case "doc", "docx":
		return "Document Word"
	case "jpg", "jpeg", "png":
		return "Image"
	case "":
		return "Fichier"
	default:
		return "Fichier " + strings.ToUpper(ext)
	}
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}
