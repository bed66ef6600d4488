package server

import (
	"net/http"
	"strconv"

	"experta/internal/app"
	"experta/internal/domain"
	"experta/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Telephone       string `json:"telephone"`
	Role            string `json:"role"`
}

type registerProRequest struct {
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	Email            string   `json:"email"`
	Password         string   `json:"password"`
	ConfirmPassword  string   `json:"confirmPassword"`
	Telephone        string   `json:"telephone"`
	ZoneIntervention []string `json:"zoneIntervention"`
	TagsMetiers      []string `json:"tagsMetiers"`
	NomEntreprise    string   `json:"nomEntreprise"`
	SiteWeb          string   `json:"siteWeb"`
	Siret            string   `json:"siret"`
}

type authResponse struct {
	User  domain.UserView `json:"user"`
	Token string          `json:"token"`
}

type updateUserRequest struct {
	FirstName        *string   `json:"firstName"`
	LastName         *string   `json:"lastName"`
	Email            *string   `json:"email"`
	Telephone        *string   `json:"telephone"`
	Password         *string   `json:"password"`
	Role             *string   `json:"role"`
	IsActive         *bool     `json:"isActive"`
	ZoneIntervention *[]string `json:"zoneIntervention"`
	TagsMetiers      *[]string `json:"tagsMetiers"`
	NomEntreprise    *string   `json:"nomEntreprise"`
	SiteWeb          *string   `json:"siteWeb"`
	Siret            *string   `json:"siret"`
	NoteFiabilite    *float64  `json:"noteFiabilite"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "Trop de tentatives de connexion, réessayez plus tard") {
		return
	}
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Connexion réussie", authResponse{
		User:  domain.NewUserView(user),
		Token: token,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signupLimiter, "Trop de tentatives d'inscription, réessayez plus tard") {
		return
	}
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	// Public registration always creates a client account.
	req.Role = ""
	user, err := s.app.CreateUser(app.CreateUserInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Telephone:       req.Telephone,
	}, "")
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Compte créé avec succès", authResponse{
		User:  domain.NewUserView(user),
		Token: token,
	})
}

func (s *Server) registerProfessional(w http.ResponseWriter, r *http.Request, role domain.Role) {
	if !s.allowRate(w, r, s.signupLimiter, "Trop de tentatives d'inscription, réessayez plus tard") {
		return
	}
	var req registerProRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	in := app.RegisterProInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Password:         req.Password,
		ConfirmPassword:  req.ConfirmPassword,
		Telephone:        req.Telephone,
		ZoneIntervention: req.ZoneIntervention,
		TagsMetiers:      req.TagsMetiers,
		NomEntreprise:    req.NomEntreprise,
		SiteWeb:          req.SiteWeb,
		Siret:            req.Siret,
	}
	var (
		user  domain.User
		token string
		err   error
	)
	if role == domain.RoleAMO {
		user, token, err = s.app.RegisterAMO(in)
	} else {
		user, token, err = s.app.RegisterPartner(in)
	}
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Compte professionnel créé avec succès", authResponse{
		User:  domain.NewUserView(user),
		Token: token,
	})
}

func (s *Server) handleRegisterAMO(w http.ResponseWriter, r *http.Request) {
	s.registerProfessional(w, r, domain.RoleAMO)
}

func (s *Server) handleRegisterPartner(w http.ResponseWriter, r *http.Request) {
	s.registerProfessional(w, r, domain.RolePartenaire)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	user, err := s.app.GetUser(claims.UserID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewUserView(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter := store.UserFilter{}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Le rôle demandé est invalide")
			return
		}
		filter.Role = &role
	}
	if raw := r.URL.Query().Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Le filtre isActive est invalide")
			return
		}
		filter.IsActive = &active
	}
	page := pageFromQuery(r)
	users, total, err := s.app.ListUsers(filter, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewUserViews(users), page, total)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.signupLimiter, "Trop de tentatives d'inscription, réessayez plus tard") {
		return
	}
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	callerRole := domain.Role("")
	if claims := claimsFromRequest(r); claims != nil {
		callerRole = claims.Role
	}
	user, err := s.app.CreateUser(app.CreateUserInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Telephone:       req.Telephone,
		Role:            req.Role,
	}, callerRole)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Utilisateur créé avec succès", domain.NewUserView(user))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	user, err := s.app.GetUser(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewUserView(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	user, err := s.app.UpdateUser(claimsFromRequest(r), id, app.UpdateUserInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Telephone:        req.Telephone,
		Password:         req.Password,
		Role:             req.Role,
		IsActive:         req.IsActive,
		ZoneIntervention: req.ZoneIntervention,
		TagsMetiers:      req.TagsMetiers,
		NomEntreprise:    req.NomEntreprise,
		SiteWeb:          req.SiteWeb,
		Siret:            req.Siret,
		NoteFiabilite:    req.NoteFiabilite,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Utilisateur mis à jour", domain.NewUserView(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	if err := s.app.DeleteUser(claimsFromRequest(r), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Utilisateur supprimé", nil)
}

func professionalRole(r *http.Request) (domain.Role, bool) {
	raw := r.URL.Query().Get("role")
	if raw == "" {
		return domain.RolePartenaire, true
	}
	role, ok := domain.ParseRole(raw)
	if !ok || !role.IsProfessional() {
		return "", false
	}
	return role, true
}

func (s *Server) handleProfessionalsByTag(w http.ResponseWriter, r *http.Request) {
	role, ok := professionalRole(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Le rôle demandé est invalide")
		return
	}
	page := pageFromQuery(r)
	users, total, err := s.app.ProfessionalsByTag(role, r.PathValue("tag"), page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewUserViews(users), page, total)
}

func (s *Server) handleProfessionalsByZone(w http.ResponseWriter, r *http.Request) {
	role, ok := professionalRole(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Le rôle demandé est invalide")
		return
	}
	page := pageFromQuery(r)
	users, total, err := s.app.ProfessionalsByZone(role, r.PathValue("zone"), page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewUserViews(users), page, total)
}

func (s *Server) handleTopProfessionals(w http.ResponseWriter, r *http.Request) {
	role, ok := professionalRole(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Le rôle demandé est invalide")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := s.app.TopRatedProfessionals(role, limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewUserViews(users))
}

func (s *Server) handlePopularUserTags(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tags, err := s.app.PopularUserTags(limit)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", tags)
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) handleAddUserTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	var req tagRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	user, err := s.app.AddUserTag(claimsFromRequest(r), id, req.Tag)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Tag ajouté", domain.NewUserView(user))
}

func (s *Server) handleRemoveUserTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	user, err := s.app.RemoveUserTag(claimsFromRequest(r), id, r.PathValue("tag"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Tag supprimé", domain.NewUserView(user))
}
