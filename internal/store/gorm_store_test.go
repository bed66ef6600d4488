package store

import (
	"context"
	"testing"
	"time"

	"experta/internal/domain"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewGormStore: %v", err)
	}
	return s
}

func TestGormStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := NewGormStore("oracle", "dsn"); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func TestGormStorePing(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestGormStoreUserRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	note := 4.2
	u := domain.User{
		FirstName:        "Marie",
		LastName:         "Martin",
		Email:            "marie@example.com",
		PasswordHash:     "hash",
		Role:             domain.RolePartenaire,
		IsActive:         true,
		ZoneIntervention: []string{"44", "nantes"},
		TagsMetiers:      []string{"plomberie", "chauffage"},
		NomEntreprise:    "Martin Plomberie",
		Siret:            "12345678901234",
		NoteFiabilite:    &note,
	}
	if err := s.CreateUser(&u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("ID not backfilled")
	}
	got, ok, err := s.GetUserByID(u.ID)
	if err != nil || !ok {
		t.Fatalf("GetUserByID: (%v, %v)", ok, err)
	}
	if got.Email != "marie@example.com" || got.NomEntreprise != "Martin Plomberie" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if len(got.TagsMetiers) != 2 || got.TagsMetiers[0] != "plomberie" {
		t.Fatalf("tags lost: %v", got.TagsMetiers)
	}
	if got.NoteFiabilite == nil || *got.NoteFiabilite != 4.2 {
		t.Fatalf("note lost: %v", got.NoteFiabilite)
	}

	byEmail, ok, err := s.GetUserByEmail("MARIE@example.com")
	if err != nil || !ok || byEmail.ID != u.ID {
		t.Fatalf("GetUserByEmail: (%+v, %v, %v)", byEmail, ok, err)
	}
}

func TestGormStoreDuplicateEmail(t *testing.T) {
	s := newSQLiteStore(t)
	u := domain.User{Email: "jean@example.com", Role: domain.RoleClient, PasswordHash: "h"}
	if err := s.CreateUser(&u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	dup := domain.User{Email: "jean@example.com", Role: domain.RoleClient, PasswordHash: "h"}
	if err := s.CreateUser(&dup); err != ErrDuplicateEmail {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestGormStoreTouchLastLogin(t *testing.T) {
	s := newSQLiteStore(t)
	u := domain.User{Email: "jean@example.com", Role: domain.RoleClient, PasswordHash: "h"}
	if err := s.CreateUser(&u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	at := time.Now().UTC().Truncate(time.Second)
	if err := s.TouchLastLogin(u.ID, at); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	got, _, err := s.GetUserByID(u.ID)
	if err != nil || got.LastLogin == nil {
		t.Fatalf("last login not stamped: %v (%v)", got.LastLogin, err)
	}
}

func TestGormStoreClaimProjet(t *testing.T) {
	s := newSQLiteStore(t)
	client := seedUser(t, s, "client@example.com", domain.RoleClient)
	amo1 := seedUser(t, s, "amo1@example.com", domain.RoleAMO)
	amo2 := seedUser(t, s, "amo2@example.com", domain.RoleAMO)
	projet := seedProjet(t, s, client.ID)

	now := time.Now().UTC()
	claimed, err := s.ClaimProjet(projet.ID, amo1.ID, now)
	if err != nil || !claimed {
		t.Fatalf("first claim = (%v, %v)", claimed, err)
	}
	claimed, err = s.ClaimProjet(projet.ID, amo2.ID, now)
	if err != nil || claimed {
		t.Fatalf("second claim = (%v, %v), want (false, nil)", claimed, err)
	}
	got, ok, err := s.GetProjetByID(projet.ID)
	if err != nil || !ok {
		t.Fatalf("GetProjetByID: (%v, %v)", ok, err)
	}
	if got.AmoID == nil || *got.AmoID != amo1.ID || got.Statut != domain.StatutEnMiseEnRelation {
		t.Fatalf("claim not applied: %+v", got)
	}
	if got.Amo == nil || got.Amo.ID != amo1.ID {
		t.Fatal("amo relation not loaded")
	}
	if got.Client == nil || got.Client.ID != client.ID {
		t.Fatal("client relation not loaded")
	}
}

func TestGormStoreVisibleDocuments(t *testing.T) {
	s := newSQLiteStore(t)
	client := seedUser(t, s, "client@example.com", domain.RoleClient)
	amo := seedUser(t, s, "amo@example.com", domain.RoleAMO)
	projet := seedProjet(t, s, client.ID)
	if claimed, err := s.ClaimProjet(projet.ID, amo.ID, time.Now().UTC()); err != nil || !claimed {
		t.Fatalf("claim: (%v, %v)", claimed, err)
	}

	seedDocument(t, s, client.ID, domain.RoleClient, domain.VisibilitePrive, nil)
	seedDocument(t, s, amo.ID, domain.RoleAMO, domain.VisibilitePartage, &projet.ID)
	seedDocument(t, s, amo.ID, domain.RoleAMO, domain.VisibilitePrive, &projet.ID)
	// Shared but unattached documents stay owner-only.
	seedDocument(t, s, amo.ID, domain.RoleAMO, domain.VisibilitePartage, nil)

	_, total, err := s.ListVisibleDocuments(client.ID, domain.RoleClient, "", Page{})
	if err != nil || total != 2 {
		t.Fatalf("client sees %d documents (%v), want 2", total, err)
	}
	_, total, err = s.ListVisibleDocuments(amo.ID, domain.RoleAMO, "", Page{})
	if err != nil || total != 3 {
		t.Fatalf("amo sees %d documents (%v), want 3", total, err)
	}

	// mimeType filter applies to the whole visible set.
	_, total, err = s.ListVisibleDocuments(client.ID, domain.RoleClient, "image/png", Page{})
	if err != nil || total != 0 {
		t.Fatalf("mime filter leaked %d documents (%v)", total, err)
	}
}

func TestGormStoreVisibleDocumentsScopedToProjet(t *testing.T) {
	s := newSQLiteStore(t)
	client1 := seedUser(t, s, "client1@example.com", domain.RoleClient)
	client2 := seedUser(t, s, "client2@example.com", domain.RoleClient)
	amo := seedUser(t, s, "amo@example.com", domain.RoleAMO)

	p1 := seedProjet(t, s, client1.ID)
	p2 := seedProjet(t, s, client2.ID)
	for _, id := range []uint{p1.ID, p2.ID} {
		if claimed, err := s.ClaimProjet(id, amo.ID, time.Now().UTC()); err != nil || !claimed {
			t.Fatalf("claim projet %d: (%v, %v)", id, claimed, err)
		}
	}
	shared := seedDocument(t, s, amo.ID, domain.RoleAMO, domain.VisibilitePartage, &p2.ID)

	// Attached to client2's project: invisible to client1 even though
	// client1 also works with this AMO.
	_, total, err := s.ListVisibleDocuments(client1.ID, domain.RoleClient, "", Page{})
	if err != nil || total != 0 {
		t.Fatalf("client1 sees %d documents (%v), want 0", total, err)
	}
	docs, total, err := s.ListVisibleDocuments(client2.ID, domain.RoleClient, "", Page{})
	if err != nil || total != 1 || docs[0].ID != shared.ID {
		t.Fatalf("client2 listing total=%d err=%v", total, err)
	}
}

func TestGormStoreListProfessionalsByTag(t *testing.T) {
	s := newSQLiteStore(t)
	high, low := 4.8, 2.0
	pro1 := domain.User{
		Email: "pro1@example.com", Role: domain.RolePartenaire, PasswordHash: "h",
		IsActive: true, TagsMetiers: []string{"plomberie"}, NoteFiabilite: &high,
	}
	pro2 := domain.User{
		Email: "pro2@example.com", Role: domain.RolePartenaire, PasswordHash: "h",
		IsActive: true, TagsMetiers: []string{"plomberie", "chauffage"}, NoteFiabilite: &low,
	}
	inactive := domain.User{
		Email: "pro3@example.com", Role: domain.RolePartenaire, PasswordHash: "h",
		IsActive: false, TagsMetiers: []string{"plomberie"},
	}
	for _, u := range []*domain.User{&pro1, &pro2, &inactive} {
		if err := s.CreateUser(u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	pros, total, err := s.ListProfessionalsByTag(domain.RolePartenaire, "Plomberie", Page{})
	if err != nil {
		t.Fatalf("ListProfessionalsByTag: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2 (inactive excluded)", total)
	}
	if pros[0].ID != pro1.ID {
		t.Fatalf("best rated not first: %v", pros[0].Email)
	}

	// A tag that is only a substring of a stored tag must not match.
	_, total, err = s.ListProfessionalsByTag(domain.RolePartenaire, "plomb", Page{})
	if err != nil || total != 0 {
		t.Fatalf("substring matched %d professionals (%v)", total, err)
	}
}

func TestGormStoreSoftDeleteFiltersListings(t *testing.T) {
	s := newSQLiteStore(t)
	client := seedUser(t, s, "client@example.com", domain.RoleClient)
	projet := seedProjet(t, s, client.ID)
	mission := domain.Mission{
		ProjectID:    projet.ID,
		TagsMetiers:  []string{"plomberie"},
		Statut:       domain.MissionEnAttente,
		DateCreation: time.Now().UTC(),
		IsActive:     true,
	}
	if err := s.CreateMission(&mission); err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	if err := s.SoftDeleteMission(mission.ID); err != nil {
		t.Fatalf("SoftDeleteMission: %v", err)
	}
	_, total, err := s.ListMissions(MissionFilter{}, Page{})
	if err != nil || total != 0 {
		t.Fatalf("soft-deleted mission still listed: total=%d err=%v", total, err)
	}
	// The row itself survives for direct lookups.
	got, ok, err := s.GetMissionByID(mission.ID)
	if err != nil || !ok || got.IsActive {
		t.Fatalf("soft delete broke the row: (%+v, %v, %v)", got, ok, err)
	}
}
