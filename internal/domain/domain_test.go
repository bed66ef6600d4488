package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"client", RoleClient, true},
		{"amo", RoleAMO, true},
		{"AMO", RoleAMO, true},
		{" Partenaire ", RolePartenaire, true},
		{"ADMIN", RoleAdmin, true},
		{"autre", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRoleIsProfessional(t *testing.T) {
	if !RoleAMO.IsProfessional() || !RolePartenaire.IsProfessional() {
		t.Fatal("amo and partenaire are professional roles")
	}
	if RoleClient.IsProfessional() || RoleAdmin.IsProfessional() {
		t.Fatal("client and admin are not professional roles")
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Plomberie ", "plomberie", "", "Maçonnerie"})
	want := []string{"plomberie", "maçonnerie"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
}

func TestMissionTagMutation(t *testing.T) {
	m := Mission{}
	if !m.AddTagMetier(" Plomberie ") {
		t.Fatal("first add should succeed")
	}
	if m.AddTagMetier("plomberie") {
		t.Fatal("duplicate add should be rejected")
	}
	if m.AddTagMetier("  ") {
		t.Fatal("blank tag should be rejected")
	}
	if !m.RemoveTagMetier("PLOMBERIE") {
		t.Fatal("remove should find the normalized tag")
	}
	if m.RemoveTagMetier("plomberie") {
		t.Fatal("second remove should report absence")
	}
	if len(m.TagsMetiers) != 0 {
		t.Fatalf("tags left over: %v", m.TagsMetiers)
	}
}

func TestClearProfessionalFields(t *testing.T) {
	note := 4.5
	u := User{
		ZoneIntervention: []string{"75"},
		TagsMetiers:      []string{"plomberie"},
		NomEntreprise:    "SARL Travaux",
		SiteWeb:          "https://example.com",
		Siret:            "12345678901234",
		NoteFiabilite:    &note,
	}
	u.ClearProfessionalFields()
	if u.ZoneIntervention != nil || u.TagsMetiers != nil || u.NomEntreprise != "" ||
		u.SiteWeb != "" || u.Siret != "" || u.NoteFiabilite != nil {
		t.Fatalf("professional fields not cleared: %+v", u)
	}
}

func TestNewUserView(t *testing.T) {
	v := NewUserView(User{FirstName: "Jean", LastName: "Dupont"})
	if v.FullName != "Jean Dupont" {
		t.Fatalf("FullName = %q", v.FullName)
	}
}

func TestNewProjetView(t *testing.T) {
	budget := 125000.0
	submitted := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := submitted.Add(72 * time.Hour)
	p := Projet{
		Address:        "12 rue des Lilas",
		City:           "Nantes",
		PostalCode:     "44000",
		Budget:         &budget,
		Statut:         StatutDevisRecus,
		DateSoumission: &submitted,
	}
	v := NewProjetView(p, now)
	if v.FullAddress != "12 rue des Lilas, 44000 Nantes" {
		t.Fatalf("FullAddress = %q", v.FullAddress)
	}
	if v.FormattedBudget != "125000.00 €" {
		t.Fatalf("FormattedBudget = %q", v.FormattedBudget)
	}
	if !v.IsInProgress || v.IsCompleted {
		t.Fatalf("status flags wrong: inProgress=%v completed=%v", v.IsInProgress, v.IsCompleted)
	}
	if v.DurationDays == nil || *v.DurationDays != 3 {
		t.Fatalf("DurationDays = %v", v.DurationDays)
	}
}

func TestNewProjetViewCompleted(t *testing.T) {
	submitted := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Projet{
		Statut:         StatutCloture,
		DateSoumission: &submitted,
		UpdatedAt:      submitted.Add(48 * time.Hour),
	}
	v := NewProjetView(p, submitted.Add(1000*time.Hour))
	if !v.IsCompleted || v.IsInProgress {
		t.Fatal("closed project flags wrong")
	}
	// Duration of a closed project stops at the last update.
	if v.DurationDays == nil || *v.DurationDays != 2 {
		t.Fatalf("DurationDays = %v", v.DurationDays)
	}
}

func TestNewMissionView(t *testing.T) {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	v := NewMissionView(Mission{
		Statut:       MissionEnCours,
		TagsMetiers:  []string{"plomberie", "électricité"},
		DateCreation: created,
	}, created.Add(30*time.Hour))
	if !v.IsInProgress || v.IsCompleted {
		t.Fatal("mission status flags wrong")
	}
	if v.TagsCount != 2 {
		t.Fatalf("TagsCount = %d", v.TagsCount)
	}
	if v.DurationDays != 2 {
		t.Fatalf("DurationDays = %d", v.DurationDays)
	}
}

func TestNewDocumentView(t *testing.T) {
	v := NewDocumentView(Document{
		LienFichier:   "client_1/document-123-abc.pdf",
		TailleFichier: 1536,
		MimeType:      "application/pdf",
	})
	if v.FileExtension != "pdf" || !v.IsPDF {
		t.Fatalf("extension/pdf detection wrong: %+v", v)
	}
	if v.FormattedSize != "1.50 KB" {
		t.Fatalf("FormattedSize = %q", v.FormattedSize)
	}
	if v.ReadableFileType != "Document PDF" {
		t.Fatalf("ReadableFileType = %q", v.ReadableFileType)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{500, "500 B"},
		{1536, "1.50 KB"},
		{10 << 20, "10.00 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadableFileType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"docx", "Document Word"},
		{"jpeg", "Image"},
		{"", "Fichier"},
		{"zip", "Fichier ZIP"},
	}
	for _, tt := range tests {
		if got := readableFileType(tt.ext); got != tt.want {
			t.Errorf("readableFileType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
