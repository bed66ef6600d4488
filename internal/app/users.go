package app

import (
	"fmt"
	"log/slog"
	"strings"

	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/store"
)

// CreateUserInput is the public self-registration payload. Role defaults
// to client; creating an admin requires an admin caller.
type CreateUserInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
	Telephone       string
	Role            string
}

// RegisterProInput is the professional registration payload for AMO and
// partner accounts.
type RegisterProInput struct {
	FirstName        string
	LastName         string
	Email            string
	Password         string
	ConfirmPassword  string
	Telephone        string
	ZoneIntervention []string
	TagsMetiers      []string
	NomEntreprise    string
	SiteWeb          string
	Siret            string
}

// UpdateUserInput carries optional field updates; nil means unchanged.
type UpdateUserInput struct {
	FirstName        *string
	LastName         *string
	Email            *string
	Telephone        *string
	Password         *string
	Role             *string
	IsActive         *bool
	ZoneIntervention *[]string
	TagsMetiers      *[]string
	NomEntreprise    *string
	SiteWeb          *string
	Siret            *string
	NoteFiabilite    *float64
}

func validateIdentity(firstName, lastName, email string) error {
	if len(strings.TrimSpace(firstName)) < 2 {
		return invalid("Le prénom doit contenir au moins 2 caractères")
	}
	if len(strings.TrimSpace(lastName)) < 2 {
		return invalid("Le nom doit contenir au moins 2 caractères")
	}
	if !emailPattern.MatchString(email) {
		return invalid("L'adresse email est invalide")
	}
	return nil
}

func validatePhone(telephone string) error {
	if telephone != "" && !phonePattern.MatchString(telephone) {
		return invalid("Le numéro de téléphone est invalide")
	}
	return nil
}

// validateBasicPassword applies the basic account rule: at least 6
// characters, and the confirm field only has to match when it is sent.
func validateBasicPassword(password, confirm string) error {
	if len(password) < 6 {
		return invalid("Le mot de passe doit contenir au moins 6 caractères")
	}
	if confirm != "" && password != confirm {
		return invalid("Les mots de passe ne correspondent pas")
	}
	return nil
}

// validatePasswordPair is the stricter professional-registration rule: at
// least 8 characters and a mandatory matching confirmation.
func validatePasswordPair(password, confirm string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return invalid(err.Error())
	}
	if password != confirm {
		return invalid("Les mots de passe ne correspondent pas")
	}
	return nil
}

// CreateUser registers an account. Only admin callers may assign a role
// other than client.
func (a *App) CreateUser(in CreateUserInput, callerRole domain.Role) (domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateIdentity(in.FirstName, in.LastName, in.Email); err != nil {
		return domain.User{}, err
	}
	if err := validateBasicPassword(in.Password, in.ConfirmPassword); err != nil {
		return domain.User{}, err
	}
	if err := validatePhone(in.Telephone); err != nil {
		return domain.User{}, err
	}
	role := domain.RoleClient
	if strings.TrimSpace(in.Role) != "" {
		parsed, ok := domain.ParseRole(in.Role)
		if !ok {
			return domain.User{}, invalid("Le rôle demandé est invalide")
		}
		if parsed != domain.RoleClient && callerRole != domain.RoleAdmin {
			return domain.User{}, ErrForbidden
		}
		role = parsed
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		Telephone:    strings.TrimSpace(in.Telephone),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := a.insertUser(&user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (a *App) insertUser(user *domain.User) error {
	if _, exists, err := a.store.GetUserByEmail(user.Email); err != nil {
		return fmt.Errorf("check email: %w", err)
	} else if exists {
		return ErrEmailAlreadyExists
	}
	if err := a.store.CreateUser(user); err != nil {
		if err == store.ErrDuplicateEmail {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (a *App) registerProfessional(in RegisterProInput, role domain.Role) (domain.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateIdentity(in.FirstName, in.LastName, in.Email); err != nil {
		return domain.User{}, "", err
	}
	if err := validatePasswordPair(in.Password, in.ConfirmPassword); err != nil {
		return domain.User{}, "", err
	}
	if err := validatePhone(in.Telephone); err != nil {
		return domain.User{}, "", err
	}
	zones := domain.NormalizeTags(in.ZoneIntervention)
	tags := domain.NormalizeTags(in.TagsMetiers)
	if role == domain.RolePartenaire {
		if len(tags) == 0 {
			return domain.User{}, "", invalid("Au moins un métier est requis")
		}
		if len(zones) == 0 {
			return domain.User{}, "", invalid("Au moins une zone d'intervention est requise")
		}
	}
	if in.SiteWeb != "" && !urlPattern.MatchString(in.SiteWeb) {
		return domain.User{}, "", invalid("Le site web doit être une URL http(s) valide")
	}
	if in.Siret != "" && !siretPattern.MatchString(in.Siret) {
		return domain.User{}, "", invalid("Le numéro SIRET doit contenir 14 chiffres")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Email:            in.Email,
		Telephone:        strings.TrimSpace(in.Telephone),
		PasswordHash:     hash,
		Role:             role,
		IsActive:         true,
		ZoneIntervention: zones,
		TagsMetiers:      tags,
		NomEntreprise:    strings.TrimSpace(in.NomEntreprise),
		SiteWeb:          strings.TrimSpace(in.SiteWeb),
		Siret:            strings.TrimSpace(in.Siret),
	}
	if err := a.insertUser(&user); err != nil {
		return domain.User{}, "", err
	}
	token, err := a.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// RegisterAMO registers an AMO account and returns a bearer token.
func (a *App) RegisterAMO(in RegisterProInput) (domain.User, string, error) {
	return a.registerProfessional(in, domain.RoleAMO)
}

// RegisterPartner registers a partner account and returns a bearer token.
// Partners must declare at least one trade and one intervention zone.
func (a *App) RegisterPartner(in RegisterProInput) (domain.User, string, error) {
	return a.registerProfessional(in, domain.RolePartenaire)
}

// Login authenticates credentials and returns the user and a bearer token.
// Unknown email, wrong password and disabled account all yield the same
// generic failure.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, "", ErrInvalidCredentials
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !user.IsActive || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	now := a.now()
	if err := a.store.TouchLastLogin(user.ID, now); err != nil {
		slog.Warn("touch last login failed", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now
	token, err := a.tokens.Issue(user)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// GetUser returns one user.
func (a *App) GetUser(id uint) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns users matching the filter.
func (a *App) ListUsers(f store.UserFilter, p store.Page) ([]domain.User, int64, error) {
	return a.store.ListUsers(f, p)
}

// UpdateUser applies a partial update. Owners may edit their own profile;
// role, isActive and noteFiabilite changes require an admin.
func (a *App) UpdateUser(caller *auth.Claims, id uint, in UpdateUserInput) (domain.User, error) {
	if caller == nil || (caller.UserID != id && caller.Role != domain.RoleAdmin) {
		return domain.User{}, ErrForbidden
	}
	user, err := a.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	isAdmin := caller.Role == domain.RoleAdmin
	if (in.Role != nil || in.IsActive != nil || in.NoteFiabilite != nil) && !isAdmin {
		return domain.User{}, ErrForbidden
	}
	if in.FirstName != nil {
		if len(strings.TrimSpace(*in.FirstName)) < 2 {
			return domain.User{}, invalid("Le prénom doit contenir au moins 2 caractères")
		}
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if len(strings.TrimSpace(*in.LastName)) < 2 {
			return domain.User{}, invalid("Le nom doit contenir au moins 2 caractères")
		}
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !emailPattern.MatchString(email) {
			return domain.User{}, invalid("L'adresse email est invalide")
		}
		if email != user.Email {
			if _, exists, err := a.store.GetUserByEmail(email); err != nil {
				return domain.User{}, fmt.Errorf("check email: %w", err)
			} else if exists {
				return domain.User{}, ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if in.Telephone != nil {
		if err := validatePhone(*in.Telephone); err != nil {
			return domain.User{}, err
		}
		user.Telephone = strings.TrimSpace(*in.Telephone)
	}
	if in.Password != nil {
		if err := auth.ValidatePassword(*in.Password); err != nil {
			return domain.User{}, invalid(err.Error())
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if in.Role != nil {
		role, ok := domain.ParseRole(*in.Role)
		if !ok {
			return domain.User{}, invalid("Le rôle demandé est invalide")
		}
		user.Role = role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.ZoneIntervention != nil {
		user.ZoneIntervention = domain.NormalizeTags(*in.ZoneIntervention)
	}
	if in.TagsMetiers != nil {
		user.TagsMetiers = domain.NormalizeTags(*in.TagsMetiers)
	}
	if in.NomEntreprise != nil {
		user.NomEntreprise = strings.TrimSpace(*in.NomEntreprise)
	}
	if in.SiteWeb != nil {
		site := strings.TrimSpace(*in.SiteWeb)
		if site != "" && !urlPattern.MatchString(site) {
			return domain.User{}, invalid("Le site web doit être une URL http(s) valide")
		}
		user.SiteWeb = site
	}
	if in.Siret != nil {
		siret := strings.TrimSpace(*in.Siret)
		if siret != "" && !siretPattern.MatchString(siret) {
			return domain.User{}, invalid("Le numéro SIRET doit contenir 14 chiffres")
		}
		user.Siret = siret
	}
	if in.NoteFiabilite != nil {
		if *in.NoteFiabilite < 0 || *in.NoteFiabilite > 5 {
			return domain.User{}, invalid("La note de fiabilité doit être comprise entre 0 et 5")
		}
		note := *in.NoteFiabilite
		user.NoteFiabilite = &note
	}
	// Professional fields only make sense for amo and partenaire accounts.
	if !user.Role.IsProfessional() {
		user.ClearProfessionalFields()
	}
	if err := a.store.UpdateUser(user); err != nil {
		if err == store.ErrDuplicateEmail {
			return domain.User{}, ErrEmailAlreadyExists
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return a.GetUser(id)
}

// DeleteUser removes an account permanently. Owners and admins only; the
// last active administrator can never be deleted.
func (a *App) DeleteUser(caller *auth.Claims, id uint) error {
	if caller == nil || (caller.UserID != id && caller.Role != domain.RoleAdmin) {
		return ErrForbidden
	}
	user, err := a.GetUser(id)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleAdmin && user.IsActive {
		admins, err := a.store.CountAdmins()
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	if err := a.store.DeleteUser(id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ProfessionalsByTag lists active professionals of a role carrying a tag.
func (a *App) ProfessionalsByTag(role domain.Role, tag string, p store.Page) ([]domain.User, int64, error) {
	if !role.IsProfessional() {
		return nil, 0, invalid("Le rôle demandé est invalide")
	}
	if domain.NormalizeTag(tag) == "" {
		return nil, 0, invalid("Le tag métier est requis")
	}
	return a.store.ListProfessionalsByTag(role, tag, p)
}

// ProfessionalsByZone lists active professionals covering a zone.
func (a *App) ProfessionalsByZone(role domain.Role, zone string, p store.Page) ([]domain.User, int64, error) {
	if !role.IsProfessional() {
		return nil, 0, invalid("Le rôle demandé est invalide")
	}
	if domain.NormalizeTag(zone) == "" {
		return nil, 0, invalid("La zone d'intervention est requise")
	}
	return a.store.ListProfessionalsByZone(role, zone, p)
}

// TopRatedProfessionals lists the best rated professionals of a role.
func (a *App) TopRatedProfessionals(role domain.Role, limit int) ([]domain.User, error) {
	if !role.IsProfessional() {
		return nil, invalid("Le rôle demandé est invalide")
	}
	return a.store.ListTopRated(role, limit)
}

// PopularUserTags aggregates trade tag usage across professionals.
func (a *App) PopularUserTags(limit int) ([]domain.TagCount, error) {
	return a.store.PopularUserTags(limit)
}

// AddUserTag appends a trade tag to a professional profile.
func (a *App) AddUserTag(caller *auth.Claims, id uint, tag string) (domain.User, error) {
	return a.mutateUserTags(caller, id, tag, true)
}

// RemoveUserTag removes a trade tag from a professional profile.
func (a *App) RemoveUserTag(caller *auth.Claims, id uint, tag string) (domain.User, error) {
	return a.mutateUserTags(caller, id, tag, false)
}

func (a *App) mutateUserTags(caller *auth.Claims, id uint, tag string, add bool) (domain.User, error) {
	if caller == nil || (caller.UserID != id && caller.Role != domain.RoleAdmin) {
		return domain.User{}, ErrForbidden
	}
	normalized := domain.NormalizeTag(tag)
	if normalized == "" {
		return domain.User{}, invalid("Le tag métier est requis")
	}
	user, err := a.GetUser(id)
	if err != nil {
		return domain.User{}, err
	}
	if !user.Role.IsProfessional() {
		return domain.User{}, invalid("Seuls les professionnels portent des tags métiers")
	}
	if add {
		user.TagsMetiers = domain.NormalizeTags(append(user.TagsMetiers, normalized))
	} else {
		kept := user.TagsMetiers[:0]
		for _, t := range user.TagsMetiers {
			if t != normalized {
				kept = append(kept, t)
			}
		}
		user.TagsMetiers = kept
	}
	if err := a.store.UpdateUser(user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return a.GetUser(id)
}
