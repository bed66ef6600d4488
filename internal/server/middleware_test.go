package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"experta/internal/domain"
)

func TestAuthenticateMiddleware(t *testing.T) {
	e := newTestEnv(t)
	user, token := e.seedUser("client@example.com", domain.RoleClient)

	// Missing credential is a 401, a broken one is a 403.
	status, resp := e.do(http.MethodGet, "/api/auth/me", "", nil)
	if status != http.StatusUnauthorized || resp.Message != "Token d'authentification requis" {
		t.Fatalf("no token: %d %+v", status, resp)
	}
	status, resp = e.do(http.MethodGet, "/api/auth/me", "pas-un-token", nil)
	if status != http.StatusForbidden || resp.Message != "Token invalide ou expiré" {
		t.Fatalf("bad token: %d %+v", status, resp)
	}

	status, resp = e.do(http.MethodGet, "/api/auth/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d %+v", status, resp)
	}
	var me domain.UserView
	decodeData(t, resp.Data, &me)
	if me.ID != user.ID || me.FullName != "Jean Dupont" {
		t.Fatalf("me payload: %+v", me)
	}
}

func TestRequireRole(t *testing.T) {
	e := newTestEnv(t)
	_, clientToken := e.seedUser("client@example.com", domain.RoleClient)
	_, adminToken := e.seedUser("admin@example.com", domain.RoleAdmin)

	status, resp := e.do(http.MethodGet, "/api/users", clientToken, nil)
	if status != http.StatusForbidden || resp.Message != "Accès non autorisé" {
		t.Fatalf("client list users: %d %+v", status, resp)
	}
	if status, _ = e.do(http.MethodGet, "/api/documents", clientToken, nil); status != http.StatusForbidden {
		t.Fatalf("client list documents: %d", status)
	}

	status, resp = e.do(http.MethodGet, "/api/users", adminToken, nil)
	if status != http.StatusOK || resp.Pagination == nil {
		t.Fatalf("admin list users: %d %+v", status, resp)
	}
}

func TestRequireRoleHiddenAnswers404(t *testing.T) {
	e := newTestEnv(t)
	_, clientToken := e.seedUser("client@example.com", domain.RoleClient)
	_, amoToken := e.seedUser("amo@example.com", domain.RoleAMO)
	_, partnerToken := e.seedUser("partenaire@example.com", domain.RolePartenaire)

	// Every failure mode looks like a missing route.
	for name, token := range map[string]string{
		"no token":     "",
		"bad token":    "pas-un-token",
		"wrong role":   clientToken,
		"other hidden": partnerToken,
	} {
		status, resp := e.do(http.MethodGet, "/api/amo/dashboard", token, nil)
		if status != http.StatusNotFound || resp.Message != "Route non trouvée" {
			t.Fatalf("%s: %d %+v", name, status, resp)
		}
	}

	status, resp := e.do(http.MethodGet, "/api/amo/dashboard", amoToken, nil)
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("amo dashboard: %d %+v", status, resp)
	}
	var data map[string]int64
	decodeData(t, resp.Data, &data)
	if _, ok := data["projetsDisponibles"]; !ok {
		t.Fatalf("dashboard data: %v", data)
	}

	// The partner surface mirrors the same behavior.
	if status, _ = e.do(http.MethodGet, "/api/partenaire/dashboard", amoToken, nil); status != http.StatusNotFound {
		t.Fatalf("amo on partner dashboard: %d", status)
	}
	if status, _ = e.do(http.MethodGet, "/api/partenaire/dashboard", partnerToken, nil); status != http.StatusOK {
		t.Fatalf("partner dashboard: %d", status)
	}
}

func TestClientOrAnonymous(t *testing.T) {
	e := newTestEnv(t)
	_, amoToken := e.seedUser("amo@example.com", domain.RoleAMO)

	projetBody := map[string]any{
		"description": "Construction d'une maison individuelle de plain-pied",
		"address":     "12 rue des Lilas",
		"city":        "Nantes",
		"postalCode":  "44000",
		"email":       "visiteur@example.com",
		"firstName":   "Luc",
		"lastName":    "Bernard",
	}
	status, resp := e.do(http.MethodPost, "/api/projets", "", projetBody)
	if status != http.StatusCreated {
		t.Fatalf("anonymous submit: %d %+v", status, resp)
	}

	status, resp = e.do(http.MethodPost, "/api/projets", amoToken, projetBody)
	if status != http.StatusForbidden || resp.Message != "Réservé aux clients ou aux visiteurs" {
		t.Fatalf("amo submit: %d %+v", status, resp)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		token, ok := bearerToken(r)
		if token != tt.token || ok != tt.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestPageFromQuery(t *testing.T) {
	tests := []struct {
		query string
		page  int
		limit int
	}{
		{"", 1, 10},
		{"?page=3&limit=25", 3, 25},
		{"?page=0&limit=0", 1, 10},
		{"?page=-2&limit=-5", 1, 10},
		{"?limit=500", 1, 100},
		{"?page=abc&limit=xyz", 1, 10},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/users"+tt.query, nil)
		got := pageFromQuery(r)
		if got.Page != tt.page || got.Limit != tt.limit {
			t.Errorf("pageFromQuery(%q) = %+v, want page %d limit %d", tt.query, got, tt.page, tt.limit)
		}
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw string
		id  uint
		ok  bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.SetPathValue("id", tt.raw)
		id, ok := pathID(r)
		if id != tt.id || ok != tt.ok {
			t.Errorf("pathID(%q) = (%d, %v), want (%d, %v)", tt.raw, id, ok, tt.id, tt.ok)
		}
	}
}
