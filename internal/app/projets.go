package app

import (
	"fmt"
	"log/slog"
	"strings"

	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/store"
	"experta/internal/util"
)

// CreateProjetInput is the project submission payload. The contact fields
// are only used on the anonymous path to reuse or create a client account.
type CreateProjetInput struct {
	Description string
	Address     string
	City        string
	PostalCode  string
	Budget      *float64
	SurfaceM2   *int
	Bedrooms    *int
	HouseType   string
	HasLand     bool

	Email     string
	FirstName string
	LastName  string
	Telephone string
}

// UpdateProjetInput carries optional project updates; nil means unchanged.
type UpdateProjetInput struct {
	Description *string
	Address     *string
	City        *string
	PostalCode  *string
	Budget      *float64
	SurfaceM2   *int
	Bedrooms    *int
	HouseType   *string
	HasLand     *bool
	Statut      *string
	AmoID       *uint
}

func validateProjetFields(description, address, city, postalCode string) error {
	if l := len(strings.TrimSpace(description)); l < 10 || l > 5000 {
		return invalid("La description doit contenir entre 10 et 5000 caractères")
	}
	if l := len(strings.TrimSpace(address)); l < 5 || l > 255 {
		return invalid("L'adresse doit contenir entre 5 et 255 caractères")
	}
	if l := len(strings.TrimSpace(city)); l < 2 || l > 100 {
		return invalid("La ville doit contenir entre 2 et 100 caractères")
	}
	if !postalCodePattern.MatchString(postalCode) {
		return invalid("Le code postal doit contenir 5 chiffres")
	}
	return nil
}

// CreateProjet submits a project. Authenticated clients own the project
// directly; the anonymous path reuses or creates a client account keyed by
// email. Matching AMOs are logged as candidates, nothing is delivered.
func (a *App) CreateProjet(caller *auth.Claims, in CreateProjetInput) (domain.Projet, error) {
	if err := validateProjetFields(in.Description, in.Address, in.City, in.PostalCode); err != nil {
		return domain.Projet{}, err
	}
	if in.Budget != nil && *in.Budget < 0 {
		return domain.Projet{}, invalid("Le budget doit être positif")
	}
	if in.SurfaceM2 != nil && *in.SurfaceM2 < 1 {
		return domain.Projet{}, invalid("La surface doit être d'au moins 1 m²")
	}
	if in.Bedrooms != nil && *in.Bedrooms < 0 {
		return domain.Projet{}, invalid("Le nombre de chambres doit être positif")
	}
	houseType := domain.HouseType("")
	if strings.TrimSpace(in.HouseType) != "" {
		parsed, ok := domain.ParseHouseType(in.HouseType)
		if !ok {
			return domain.Projet{}, invalid("Le type de maison est invalide")
		}
		houseType = parsed
	}

	var clientID uint
	if caller != nil {
		if caller.Role != domain.RoleClient {
			return domain.Projet{}, ErrForbidden
		}
		clientID = caller.UserID
	} else {
		client, err := a.resolveAnonymousClient(in)
		if err != nil {
			return domain.Projet{}, err
		}
		clientID = client.ID
	}

	now := a.now()
	projet := domain.Projet{
		ClientID:       clientID,
		Statut:         domain.StatutBrouillon,
		Description:    strings.TrimSpace(in.Description),
		Address:        strings.TrimSpace(in.Address),
		City:           strings.TrimSpace(in.City),
		PostalCode:     in.PostalCode,
		Budget:         in.Budget,
		SurfaceM2:      in.SurfaceM2,
		Bedrooms:       in.Bedrooms,
		HouseType:      houseType,
		HasLand:        in.HasLand,
		DateSoumission: &now,
		IsActive:       true,
	}
	if err := a.store.CreateProjet(&projet); err != nil {
		return domain.Projet{}, fmt.Errorf("create projet: %w", err)
	}
	a.logAMOCandidates(projet)
	return projet, nil
}

// resolveAnonymousClient reuses the client account matching the email or
// creates one with a random password. Emails tied to professional or
// admin accounts are rejected.
func (a *App) resolveAnonymousClient(in CreateProjetInput) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateIdentity(in.FirstName, in.LastName, email); err != nil {
		return domain.User{}, err
	}
	if err := validatePhone(in.Telephone); err != nil {
		return domain.User{}, err
	}
	existing, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup client: %w", err)
	}
	if ok {
		if existing.Role != domain.RoleClient {
			return domain.User{}, invalid("Cette adresse email est associée à un compte professionnel")
		}
		return existing, nil
	}
	hash, err := auth.HashPassword(util.NewID())
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	client := domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		Telephone:    strings.TrimSpace(in.Telephone),
		PasswordHash: hash,
		Role:         domain.RoleClient,
		IsActive:     true,
	}
	if err := a.store.CreateUser(&client); err != nil {
		if err == store.ErrDuplicateEmail {
			return domain.User{}, ErrEmailAlreadyExists
		}
		return domain.User{}, fmt.Errorf("create client: %w", err)
	}
	slog.Info("client account created for anonymous submission", "user_id", client.ID)
	return client, nil
}

// logAMOCandidates records AMOs whose intervention zones match the new
// project. Notification delivery is out of scope; the log is the output.
func (a *App) logAMOCandidates(projet domain.Projet) {
	candidates, err := a.store.ListAMOsMatchingZone(projet.PostalCode, projet.City)
	if err != nil {
		slog.Warn("amo candidate lookup failed", "projet_id", projet.ID, "error", err)
		return
	}
	for _, amo := range candidates {
		slog.Info("amo candidate for new projet",
			"projet_id", projet.ID,
			"amo_id", amo.ID,
			"city", projet.City,
			"postal_code", projet.PostalCode,
		)
	}
}

// GetProjet returns one project with its relations.
func (a *App) GetProjet(id uint) (domain.Projet, error) {
	projet, ok, err := a.store.GetProjetByID(id)
	if err != nil {
		return domain.Projet{}, fmt.Errorf("get projet: %w", err)
	}
	if !ok || !projet.IsActive {
		return domain.Projet{}, ErrProjetNotFound
	}
	return projet, nil
}

// ListProjets returns active projects matching the filter.
func (a *App) ListProjets(f store.ProjetFilter, p store.Page) ([]domain.Projet, int64, error) {
	return a.store.ListProjets(f, p)
}

func canEditProjet(caller *auth.Claims, projet domain.Projet) bool {
	if caller == nil {
		return false
	}
	if caller.Role == domain.RoleAdmin {
		return true
	}
	if caller.Role == domain.RoleClient && projet.ClientID == caller.UserID {
		return true
	}
	if caller.Role == domain.RoleAMO && projet.AmoID != nil && *projet.AmoID == caller.UserID {
		return true
	}
	return false
}

// UpdateProjet applies a partial update. Owner client, assigned AMO and
// admins may edit; an amoId change must reference an active AMO account.
func (a *App) UpdateProjet(caller *auth.Claims, id uint, in UpdateProjetInput) (domain.Projet, error) {
	projet, err := a.GetProjet(id)
	if err != nil {
		return domain.Projet{}, err
	}
	if !canEditProjet(caller, projet) {
		return domain.Projet{}, ErrForbidden
	}
	if in.Description != nil {
		projet.Description = strings.TrimSpace(*in.Description)
	}
	if in.Address != nil {
		projet.Address = strings.TrimSpace(*in.Address)
	}
	if in.City != nil {
		projet.City = strings.TrimSpace(*in.City)
	}
	if in.PostalCode != nil {
		projet.PostalCode = *in.PostalCode
	}
	if err := validateProjetFields(projet.Description, projet.Address, projet.City, projet.PostalCode); err != nil {
		return domain.Projet{}, err
	}
	if in.Budget != nil {
		if *in.Budget < 0 {
			return domain.Projet{}, invalid("Le budget doit être positif")
		}
		projet.Budget = in.Budget
	}
	if in.SurfaceM2 != nil {
		if *in.SurfaceM2 < 1 {
			return domain.Projet{}, invalid("La surface doit être d'au moins 1 m²")
		}
		projet.SurfaceM2 = in.SurfaceM2
	}
	if in.Bedrooms != nil {
		if *in.Bedrooms < 0 {
			return domain.Projet{}, invalid("Le nombre de chambres doit être positif")
		}
		projet.Bedrooms = in.Bedrooms
	}
	if in.HouseType != nil {
		houseType, ok := domain.ParseHouseType(*in.HouseType)
		if !ok {
			return domain.Projet{}, invalid("Le type de maison est invalide")
		}
		projet.HouseType = houseType
	}
	if in.HasLand != nil {
		projet.HasLand = *in.HasLand
	}
	if in.Statut != nil {
		statut, ok := domain.ParseProjetStatut(*in.Statut)
		if !ok {
			return domain.Projet{}, invalid("Le statut du projet est invalide")
		}
		projet.Statut = statut
	}
	if in.AmoID != nil {
		amo, ok, err := a.store.GetUserByID(*in.AmoID)
		if err != nil {
			return domain.Projet{}, fmt.Errorf("lookup amo: %w", err)
		}
		if !ok || amo.Role != domain.RoleAMO || !amo.IsActive {
			return domain.Projet{}, invalid("L'AMO référencé est invalide")
		}
		projet.AmoID = in.AmoID
	}
	now := a.now()
	projet.DateModification = &now
	projet.Client, projet.Amo, projet.Missions = nil, nil, nil
	if err := a.store.UpdateProjet(projet); err != nil {
		return domain.Projet{}, fmt.Errorf("update projet: %w", err)
	}
	return a.GetProjet(id)
}

// DeleteProjet soft-deletes a project. Owner client and admins only.
func (a *App) DeleteProjet(caller *auth.Claims, id uint) error {
	projet, err := a.GetProjet(id)
	if err != nil {
		return err
	}
	if caller == nil || (caller.Role != domain.RoleAdmin && !(caller.Role == domain.RoleClient && projet.ClientID == caller.UserID)) {
		return ErrForbidden
	}
	if err := a.store.SoftDeleteProjet(id); err != nil {
		return fmt.Errorf("delete projet: %w", err)
	}
	return nil
}

// AcceptProjet lets an AMO claim an unassigned draft project. The claim is
// a single conditional update, so concurrent accepts cannot both win; the
// loser gets ErrProjetAlreadyClaimed.
func (a *App) AcceptProjet(caller *auth.Claims, id uint) (domain.Projet, error) {
	if caller == nil || caller.Role != domain.RoleAMO {
		return domain.Projet{}, ErrForbidden
	}
	if _, err := a.GetProjet(id); err != nil {
		return domain.Projet{}, err
	}
	claimed, err := a.store.ClaimProjet(id, caller.UserID, a.now())
	if err != nil {
		return domain.Projet{}, fmt.Errorf("claim projet: %w", err)
	}
	if !claimed {
		return domain.Projet{}, ErrProjetAlreadyClaimed
	}
	slog.Info("projet accepted", "projet_id", id, "amo_id", caller.UserID)
	return a.GetProjet(id)
}
