package app

import (
	"errors"
	"testing"

	"experta/internal/domain"
	"experta/internal/store"
)

func TestCreateUserDefaultsToClient(t *testing.T) {
	a, _, _ := newTestApp(t)
	user, err := a.CreateUser(CreateUserInput{
		FirstName:       "Jean",
		LastName:        "Dupont",
		Email:           "Jean@Example.COM",
		Password:        "motdepasse123",
		ConfirmPassword: "motdepasse123",
	}, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Role != domain.RoleClient {
		t.Fatalf("role = %q, want client", user.Role)
	}
	if user.Email != "jean@example.com" {
		t.Fatalf("email not lowercased: %q", user.Email)
	}
	if !user.IsActive || user.ID == 0 {
		t.Fatalf("account not activated: %+v", user)
	}
	if user.PasswordHash == "motdepasse123" {
		t.Fatal("password stored in clear")
	}
}

func TestCreateUserBasicPasswordRules(t *testing.T) {
	a, _, _ := newTestApp(t)

	// Basic accounts accept 6+ characters and no confirmation field.
	user, err := a.CreateUser(CreateUserInput{
		FirstName: "Jo",
		LastName:  "Doe",
		Email:     "a@b.com",
		Password:  "secret1",
	}, "")
	if err != nil {
		t.Fatalf("CreateUser without confirm: %v", err)
	}
	if user.Role != domain.RoleClient || user.ID == 0 {
		t.Fatalf("account not created: %+v", user)
	}

	if _, err := a.CreateUser(CreateUserInput{
		FirstName: "Jo", LastName: "Doe", Email: "b@b.com", Password: "court",
	}, ""); !IsValidation(err) {
		t.Fatalf("5-char password: want validation error, got %v", err)
	}

	// The professional tier keeps the stricter rule: 8+ characters and a
	// mandatory matching confirmation.
	pro := RegisterProInput{
		FirstName: "Jo", LastName: "Doe", Email: "c@b.com",
		Password: "secret1", ConfirmPassword: "secret1",
	}
	if _, _, err := a.RegisterAMO(pro); !IsValidation(err) {
		t.Fatalf("7-char professional password: want validation error, got %v", err)
	}
	pro.Password, pro.ConfirmPassword = "motdepasse123", ""
	if _, _, err := a.RegisterAMO(pro); !IsValidation(err) {
		t.Fatalf("missing professional confirm: want validation error, got %v", err)
	}
}

func TestCreateUserPrivilegedRoleNeedsAdmin(t *testing.T) {
	a, _, _ := newTestApp(t)
	in := CreateUserInput{
		FirstName: "Jean", LastName: "Dupont", Email: "amo@example.com",
		Password: "motdepasse123", ConfirmPassword: "motdepasse123", Role: "amo",
	}
	if _, err := a.CreateUser(in, domain.RoleClient); !errors.Is(err, ErrForbidden) {
		t.Fatalf("client caller: want ErrForbidden, got %v", err)
	}
	if _, err := a.CreateUser(in, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous caller: want ErrForbidden, got %v", err)
	}
	user, err := a.CreateUser(in, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("admin caller: %v", err)
	}
	if user.Role != domain.RoleAMO {
		t.Fatalf("role = %q", user.Role)
	}
}

func TestCreateUserValidation(t *testing.T) {
	a, _, _ := newTestApp(t)
	base := CreateUserInput{
		FirstName: "Jean", LastName: "Dupont", Email: "jean@example.com",
		Password: "motdepasse123", ConfirmPassword: "motdepasse123",
	}
	tests := []struct {
		name   string
		mutate func(*CreateUserInput)
	}{
		{"short first name", func(in *CreateUserInput) { in.FirstName = "J" }},
		{"short last name", func(in *CreateUserInput) { in.LastName = "D" }},
		{"bad email", func(in *CreateUserInput) { in.Email = "pas-un-email" }},
		{"short password", func(in *CreateUserInput) { in.Password, in.ConfirmPassword = "court", "court" }},
		{"mismatched passwords", func(in *CreateUserInput) { in.ConfirmPassword = "autrechose" }},
		{"bad phone", func(in *CreateUserInput) { in.Telephone = "12345" }},
		{"bad role", func(in *CreateUserInput) { in.Role = "banane" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			if _, err := a.CreateUser(in, domain.RoleAdmin); !IsValidation(err) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	a, ms, _ := newTestApp(t)
	seedAccount(t, ms, "jean@example.com", domain.RoleClient)
	_, err := a.CreateUser(CreateUserInput{
		FirstName: "Jean", LastName: "Dupont", Email: "JEAN@example.com",
		Password: "motdepasse123", ConfirmPassword: "motdepasse123",
	}, "")
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("want ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterPartnerRequiresTagsAndZones(t *testing.T) {
	a, _, _ := newTestApp(t)
	base := RegisterProInput{
		FirstName: "Marie", LastName: "Martin", Email: "marie@example.com",
		Password: "motdepasse123", ConfirmPassword: "motdepasse123",
		TagsMetiers: []string{"Plomberie"}, ZoneIntervention: []string{"44"},
	}

	noTags := base
	noTags.TagsMetiers = nil
	if _, _, err := a.RegisterPartner(noTags); !IsValidation(err) {
		t.Fatalf("missing tags: want validation error, got %v", err)
	}
	noZones := base
	noZones.ZoneIntervention = nil
	if _, _, err := a.RegisterPartner(noZones); !IsValidation(err) {
		t.Fatalf("missing zones: want validation error, got %v", err)
	}

	user, token, err := a.RegisterPartner(base)
	if err != nil {
		t.Fatalf("RegisterPartner: %v", err)
	}
	if user.Role != domain.RolePartenaire {
		t.Fatalf("role = %q", user.Role)
	}
	if user.TagsMetiers[0] != "plomberie" {
		t.Fatalf("tags not normalized: %v", user.TagsMetiers)
	}
	if token == "" {
		t.Fatal("no token issued")
	}
}

func TestRegisterAMOWithoutTags(t *testing.T) {
	a, _, _ := newTestApp(t)
	// AMO registration does not require tags or zones.
	user, token, err := a.RegisterAMO(RegisterProInput{
		FirstName: "Paul", LastName: "Durand", Email: "paul@example.com",
		Password: "motdepasse123", ConfirmPassword: "motdepasse123",
	})
	if err != nil {
		t.Fatalf("RegisterAMO: %v", err)
	}
	if user.Role != domain.RoleAMO || token == "" {
		t.Fatalf("bad result: role=%q token=%q", user.Role, token)
	}
}

func TestRegisterProfessionalRejectsBadSiretAndURL(t *testing.T) {
	a, _, _ := newTestApp(t)
	base := RegisterProInput{
		FirstName: "Paul", LastName: "Durand", Email: "paul@example.com",
		Password: "motdepasse123", ConfirmPassword: "motdepasse123",
	}
	badSiret := base
	badSiret.Siret = "123"
	if _, _, err := a.RegisterAMO(badSiret); !IsValidation(err) {
		t.Fatalf("bad siret: want validation error, got %v", err)
	}
	badURL := base
	badURL.SiteWeb = "ftp://example.com"
	if _, _, err := a.RegisterAMO(badURL); !IsValidation(err) {
		t.Fatalf("bad url: want validation error, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	a, ms, _ := newTestApp(t)
	seedAccount(t, ms, "jean@example.com", domain.RoleClient)

	user, token, err := a.Login("JEAN@example.com", "motdepasse123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || user.LastLogin == nil {
		t.Fatalf("bad result: token=%q lastLogin=%v", token, user.LastLogin)
	}

	if _, _, err := a.Login("jean@example.com", "mauvais"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := a.Login("inconnu@example.com", "motdepasse123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := a.Login("", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty credentials: want ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	a, ms, _ := newTestApp(t)
	u := seedAccount(t, ms, "jean@example.com", domain.RoleClient)
	u.IsActive = false
	if err := ms.UpdateUser(u); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// Disabled accounts get the same generic failure as bad credentials.
	if _, _, err := a.Login("jean@example.com", "motdepasse123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateUserPermissions(t *testing.T) {
	a, ms, _ := newTestApp(t)
	owner := seedAccount(t, ms, "jean@example.com", domain.RoleClient)
	other := seedAccount(t, ms, "autre@example.com", domain.RoleClient)
	admin := seedAccount(t, ms, "admin@example.com", domain.RoleAdmin)

	newName := "Jeannot"
	if _, err := a.UpdateUser(claimsFor(other), owner.ID, UpdateUserInput{FirstName: &newName}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger edit: want ErrForbidden, got %v", err)
	}
	if _, err := a.UpdateUser(nil, owner.ID, UpdateUserInput{FirstName: &newName}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("anonymous edit: want ErrForbidden, got %v", err)
	}

	// Owners cannot touch admin-only fields.
	inactive := false
	if _, err := a.UpdateUser(claimsFor(owner), owner.ID, UpdateUserInput{IsActive: &inactive}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("owner isActive edit: want ErrForbidden, got %v", err)
	}
	role := "amo"
	if _, err := a.UpdateUser(claimsFor(owner), owner.ID, UpdateUserInput{Role: &role}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("owner role edit: want ErrForbidden, got %v", err)
	}

	got, err := a.UpdateUser(claimsFor(owner), owner.ID, UpdateUserInput{FirstName: &newName})
	if err != nil || got.FirstName != "Jeannot" {
		t.Fatalf("owner edit failed: %+v (%v)", got, err)
	}
	got, err = a.UpdateUser(claimsFor(admin), owner.ID, UpdateUserInput{IsActive: &inactive})
	if err != nil || got.IsActive {
		t.Fatalf("admin deactivate failed: %+v (%v)", got, err)
	}
}

func TestUpdateUserNoteFiabiliteBounds(t *testing.T) {
	a, ms, _ := newTestApp(t)
	admin := seedAccount(t, ms, "admin@example.com", domain.RoleAdmin)
	pro := seedAccount(t, ms, "pro@example.com", domain.RoleAMO)

	tooHigh := 5.5
	if _, err := a.UpdateUser(claimsFor(admin), pro.ID, UpdateUserInput{NoteFiabilite: &tooHigh}); !IsValidation(err) {
		t.Fatalf("out of range note: want validation error, got %v", err)
	}
	ok := 4.5
	got, err := a.UpdateUser(claimsFor(admin), pro.ID, UpdateUserInput{NoteFiabilite: &ok})
	if err != nil || got.NoteFiabilite == nil || *got.NoteFiabilite != 4.5 {
		t.Fatalf("note not applied: %+v (%v)", got.NoteFiabilite, err)
	}
}

func TestUpdateUserRoleChangeClearsProfessionalFields(t *testing.T) {
	a, ms, _ := newTestApp(t)
	admin := seedAccount(t, ms, "admin@example.com", domain.RoleAdmin)
	pro := seedAccount(t, ms, "pro@example.com", domain.RolePartenaire)
	pro.TagsMetiers = []string{"plomberie"}
	pro.NomEntreprise = "SARL"
	if err := ms.UpdateUser(pro); err != nil {
		t.Fatalf("seed pro fields: %v", err)
	}

	role := "client"
	got, err := a.UpdateUser(claimsFor(admin), pro.ID, UpdateUserInput{Role: &role})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.Role != domain.RoleClient {
		t.Fatalf("role = %q", got.Role)
	}
	if len(got.TagsMetiers) != 0 || got.NomEntreprise != "" {
		t.Fatalf("professional fields kept: %+v", got)
	}
}

func TestDeleteUserLastAdminGuard(t *testing.T) {
	a, ms, _ := newTestApp(t)
	admin := seedAccount(t, ms, "admin@example.com", domain.RoleAdmin)

	if err := a.DeleteUser(claimsFor(admin), admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("want ErrLastAdmin, got %v", err)
	}

	second := seedAccount(t, ms, "admin2@example.com", domain.RoleAdmin)
	if err := a.DeleteUser(claimsFor(second), admin.ID); err != nil {
		t.Fatalf("delete with two admins: %v", err)
	}
	if _, err := a.GetUser(admin.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("deleted admin still present: %v", err)
	}
}

func TestDeleteUserPermissions(t *testing.T) {
	a, ms, _ := newTestApp(t)
	owner := seedAccount(t, ms, "jean@example.com", domain.RoleClient)
	other := seedAccount(t, ms, "autre@example.com", domain.RoleClient)

	if err := a.DeleteUser(claimsFor(other), owner.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger delete: want ErrForbidden, got %v", err)
	}
	if err := a.DeleteUser(claimsFor(owner), owner.ID); err != nil {
		t.Fatalf("self delete: %v", err)
	}
}

func TestUserTagMutations(t *testing.T) {
	a, ms, _ := newTestApp(t)
	pro := seedAccount(t, ms, "pro@example.com", domain.RolePartenaire)
	client := seedAccount(t, ms, "client@example.com", domain.RoleClient)

	got, err := a.AddUserTag(claimsFor(pro), pro.ID, " Plomberie ")
	if err != nil {
		t.Fatalf("AddUserTag: %v", err)
	}
	if len(got.TagsMetiers) != 1 || got.TagsMetiers[0] != "plomberie" {
		t.Fatalf("tags = %v", got.TagsMetiers)
	}

	if _, err := a.AddUserTag(claimsFor(client), client.ID, "plomberie"); !IsValidation(err) {
		t.Fatalf("tag on client account: want validation error, got %v", err)
	}
	if _, err := a.AddUserTag(claimsFor(client), pro.ID, "plomberie"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger tag edit: want ErrForbidden, got %v", err)
	}

	got, err = a.RemoveUserTag(claimsFor(pro), pro.ID, "PLOMBERIE")
	if err != nil || len(got.TagsMetiers) != 0 {
		t.Fatalf("RemoveUserTag: %v (%v)", got.TagsMetiers, err)
	}
}

func TestProfessionalLookupsRejectNonProfessionalRole(t *testing.T) {
	a, _, _ := newTestApp(t)
	if _, _, err := a.ProfessionalsByTag(domain.RoleClient, "plomberie", store.Page{Page: 1, Limit: 10}); !IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	if _, err := a.TopRatedProfessionals(domain.RoleAdmin, 5); !IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}
