package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"experta/internal/domain"
)

// MemoryStore is an in-process Store used by handler and app tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[uint]domain.User
	projets   map[uint]domain.Projet
	missions  map[uint]domain.Mission
	documents map[uint]domain.Document
	emails    map[string]uint
	nextID    map[string]uint
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uint]domain.User),
		projets:   make(map[uint]domain.Projet),
		missions:  make(map[uint]domain.Mission),
		documents: make(map[uint]domain.Document),
		emails:    make(map[string]uint),
		nextID:    make(map[string]uint),
	}
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) allocID(kind string) uint {
	m.nextID[kind]++
	return m.nextID[kind]
}

func pageSlice[T any](items []T, p Page) []T {
	if p.Limit <= 0 {
		return items
	}
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// CreateUser inserts a user, enforcing email uniqueness.
func (m *MemoryStore) CreateUser(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, exists := m.emails[email]; exists {
		return ErrDuplicateEmail
	}
	u.ID = m.allocID("user")
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	m.users[u.ID] = *u
	m.emails[email] = u.ID
	return nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id uint) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) usersSorted() []domain.User {
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ListUsers returns users matching the filter, newest first.
func (m *MemoryStore) ListUsers(f UserFilter, p Page) ([]domain.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.User, 0)
	for _, u := range m.usersSorted() {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		matched = append(matched, u)
	}
	return pageSlice(matched, p), int64(len(matched)), nil
}

// UpdateUser replaces the stored user.
func (m *MemoryStore) UpdateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.users[u.ID]
	if !ok {
		return nil
	}
	oldEmail := strings.ToLower(old.Email)
	newEmail := strings.ToLower(u.Email)
	if oldEmail != newEmail {
		if _, exists := m.emails[newEmail]; exists {
			return ErrDuplicateEmail
		}
		delete(m.emails, oldEmail)
		m.emails[newEmail] = u.ID
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = u
	return nil
}

// DeleteUser removes the user permanently.
func (m *MemoryStore) DeleteUser(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		delete(m.emails, strings.ToLower(u.Email))
		delete(m.users, id)
	}
	return nil
}

// CountAdmins counts active admin accounts.
func (m *MemoryStore) CountAdmins() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, u := range m.users {
		if u.Role == domain.RoleAdmin && u.IsActive {
			count++
		}
	}
	return count, nil
}

// TouchLastLogin stamps the last successful login time.
func (m *MemoryStore) TouchLastLogin(id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	stamp := at
	u.LastLogin = &stamp
	u.UpdatedAt = at
	m.users[id] = u
	return nil
}

func containsTag(tags []string, tag string) bool {
	normalized := domain.NormalizeTag(tag)
	for _, t := range tags {
		if domain.NormalizeTag(t) == normalized {
			return true
		}
	}
	return false
}

// ListProfessionalsByTag returns active professionals carrying a trade tag.
func (m *MemoryStore) ListProfessionalsByTag(role domain.Role, tag string, p Page) ([]domain.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.User, 0)
	for _, u := range m.usersSorted() {
		if u.Role == role && u.IsActive && containsTag(u.TagsMetiers, tag) {
			matched = append(matched, u)
		}
	}
	sortByRating(matched)
	return pageSlice(matched, p), int64(len(matched)), nil
}

// ListProfessionalsByZone returns active professionals covering a zone.
func (m *MemoryStore) ListProfessionalsByZone(role domain.Role, zone string, p Page) ([]domain.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.User, 0)
	for _, u := range m.usersSorted() {
		if u.Role == role && u.IsActive && containsTag(u.ZoneIntervention, zone) {
			matched = append(matched, u)
		}
	}
	sortByRating(matched)
	return pageSlice(matched, p), int64(len(matched)), nil
}

// ListTopRated returns the best rated active professionals of a role.
func (m *MemoryStore) ListTopRated(role domain.Role, limit int) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	matched := make([]domain.User, 0)
	for _, u := range m.users {
		if u.Role == role && u.IsActive && u.NoteFiabilite != nil {
			matched = append(matched, u)
		}
	}
	sortByRating(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func sortByRating(users []domain.User) {
	sort.Slice(users, func(i, j int) bool {
		ri, rj := 0.0, 0.0
		if users[i].NoteFiabilite != nil {
			ri = *users[i].NoteFiabilite
		}
		if users[j].NoteFiabilite != nil {
			rj = *users[j].NoteFiabilite
		}
		if ri != rj {
			return ri > rj
		}
		return users[i].ID < users[j].ID
	})
}

// ListAMOsMatchingZone returns active AMOs covering the postal code,
// department prefix or city.
func (m *MemoryStore) ListAMOsMatchingZone(postalCode, city string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.User, 0)
	for _, u := range m.usersSorted() {
		if u.Role == domain.RoleAMO && u.IsActive && zoneMatches(u.ZoneIntervention, postalCode, city) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

// PopularUserTags aggregates trade tag usage over active professionals.
func (m *MemoryStore) PopularUserTags(limit int) ([]domain.TagCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lists := make([][]string, 0, len(m.users))
	for _, u := range m.users {
		if u.IsActive {
			lists = append(lists, u.TagsMetiers)
		}
	}
	return countTags(lists, limit), nil
}

// CreateProjet inserts a project.
func (m *MemoryStore) CreateProjet(p *domain.Projet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.allocID("projet")
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	stored := *p
	stored.Client, stored.Amo, stored.Missions = nil, nil, nil
	m.projets[p.ID] = stored
	return nil
}

// GetProjetByID returns a project with its client, AMO and active missions.
func (m *MemoryStore) GetProjetByID(id uint) (domain.Projet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projets[id]
	if !ok {
		return domain.Projet{}, false, nil
	}
	if client, ok := m.users[p.ClientID]; ok {
		c := client
		p.Client = &c
	}
	if p.AmoID != nil {
		if amo, ok := m.users[*p.AmoID]; ok {
			a := amo
			p.Amo = &a
		}
	}
	for _, mission := range m.missionsSorted() {
		if mission.ProjectID == id && mission.IsActive {
			p.Missions = append(p.Missions, mission)
		}
	}
	return p, true, nil
}

func (m *MemoryStore) projetsSorted() []domain.Projet {
	out := make([]domain.Projet, 0, len(m.projets))
	for _, p := range m.projets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ListProjets returns active projects matching the filter, newest first.
func (m *MemoryStore) ListProjets(f ProjetFilter, p Page) ([]domain.Projet, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Projet, 0)
	for _, pr := range m.projetsSorted() {
		if !pr.IsActive {
			continue
		}
		if f.Statut != nil && pr.Statut != *f.Statut {
			continue
		}
		if f.ClientID != nil && pr.ClientID != *f.ClientID {
			continue
		}
		if f.AmoID != nil && (pr.AmoID == nil || *pr.AmoID != *f.AmoID) {
			continue
		}
		if f.City != "" && !strings.Contains(strings.ToLower(pr.City), strings.ToLower(f.City)) {
			continue
		}
		matched = append(matched, pr)
	}
	return pageSlice(matched, p), int64(len(matched)), nil
}

// UpdateProjet replaces the stored project.
func (m *MemoryStore) UpdateProjet(p domain.Projet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projets[p.ID]; !ok {
		return nil
	}
	p.UpdatedAt = time.Now().UTC()
	p.Client, p.Amo, p.Missions = nil, nil, nil
	m.projets[p.ID] = p
	return nil
}

// SoftDeleteProjet deactivates a project.
func (m *MemoryStore) SoftDeleteProjet(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projets[id]
	if !ok {
		return nil
	}
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	m.projets[id] = p
	return nil
}

// ClaimProjet atomically assigns an AMO to an unclaimed draft project.
func (m *MemoryStore) ClaimProjet(projetID, amoID uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projets[projetID]
	if !ok || !p.IsActive || p.AmoID != nil || p.Statut != domain.StatutBrouillon {
		return false, nil
	}
	assigned := amoID
	p.AmoID = &assigned
	p.Statut = domain.StatutEnMiseEnRelation
	stamp := at
	p.DateModification = &stamp
	p.UpdatedAt = at
	m.projets[projetID] = p
	return true, nil
}

// CreateMission inserts a mission.
func (m *MemoryStore) CreateMission(mission *domain.Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mission.ID = m.allocID("mission")
	now := time.Now().UTC()
	if mission.CreatedAt.IsZero() {
		mission.CreatedAt = now
	}
	mission.UpdatedAt = now
	stored := *mission
	stored.Projet = nil
	m.missions[mission.ID] = stored
	return nil
}

// GetMissionByID returns a mission by ID.
func (m *MemoryStore) GetMissionByID(id uint) (domain.Mission, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mission, ok := m.missions[id]
	return mission, ok, nil
}

func (m *MemoryStore) missionsSorted() []domain.Mission {
	out := make([]domain.Mission, 0, len(m.missions))
	for _, mission := range m.missions {
		out = append(out, mission)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ListMissions returns active missions matching the filter, newest first.
func (m *MemoryStore) ListMissions(f MissionFilter, p Page) ([]domain.Mission, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Mission, 0)
	for _, mission := range m.missionsSorted() {
		if !mission.IsActive {
			continue
		}
		if f.ProjectID != nil && mission.ProjectID != *f.ProjectID {
			continue
		}
		if f.Statut != nil && mission.Statut != *f.Statut {
			continue
		}
		if f.Tag != "" && !containsTag(mission.TagsMetiers, f.Tag) {
			continue
		}
		matched = append(matched, mission)
	}
	return pageSlice(matched, p), int64(len(matched)), nil
}

// UpdateMission replaces the stored mission.
func (m *MemoryStore) UpdateMission(mission domain.Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.missions[mission.ID]; !ok {
		return nil
	}
	mission.UpdatedAt = time.Now().UTC()
	mission.Projet = nil
	m.missions[mission.ID] = mission
	return nil
}

// SoftDeleteMission deactivates a mission.
func (m *MemoryStore) SoftDeleteMission(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mission, ok := m.missions[id]
	if !ok {
		return nil
	}
	mission.IsActive = false
	mission.UpdatedAt = time.Now().UTC()
	m.missions[id] = mission
	return nil
}

// PopularMissionTags aggregates trade tag usage over active missions.
func (m *MemoryStore) PopularMissionTags(limit int) ([]domain.TagCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lists := make([][]string, 0, len(m.missions))
	for _, mission := range m.missions {
		if mission.IsActive {
			lists = append(lists, mission.TagsMetiers)
		}
	}
	return countTags(lists, limit), nil
}

// CreateDocuments inserts a batch atomically.
func (m *MemoryStore) CreateDocuments(docs []*domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, d := range docs {
		d.ID = m.allocID("document")
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		d.UpdatedAt = now
		stored := *d
		stored.User = nil
		m.documents[d.ID] = stored
	}
	return nil
}

// GetDocumentByID returns a document by ID.
func (m *MemoryStore) GetDocumentByID(id uint) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	return d, ok, nil
}

func (m *MemoryStore) documentsSorted() []domain.Document {
	out := make([]domain.Document, 0, len(m.documents))
	for _, d := range m.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// ListDocuments returns active documents matching the filter, newest first.
func (m *MemoryStore) ListDocuments(f DocumentFilter, p Page) ([]domain.Document, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Document, 0)
	for _, d := range m.documentsSorted() {
		if !d.IsActive {
			continue
		}
		if f.UserID != nil && d.UserID != *f.UserID {
			continue
		}
		if f.Type != nil && d.Type != *f.Type {
			continue
		}
		if f.MimeType != "" && d.MimeType != f.MimeType {
			continue
		}
		if f.ProjetID != nil && (d.ProjetID == nil || *d.ProjetID != *f.ProjetID) {
			continue
		}
		matched = append(matched, d)
	}
	return pageSlice(matched, p), int64(len(matched)), nil
}

// ListVisibleDocuments mirrors the GormStore visibility union.
func (m *MemoryStore) ListVisibleDocuments(userID uint, role domain.Role, mimeType string, p Page) ([]domain.Document, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]domain.Document, 0)
	for _, d := range m.documentsSorted() {
		if !d.IsActive {
			continue
		}
		if mimeType != "" && d.MimeType != mimeType {
			continue
		}
		if d.UserID == userID {
			matched = append(matched, d)
			continue
		}
		if d.Visibilite != domain.VisibilitePartage || d.ProjetID == nil {
			continue
		}
		if m.sharedOnProjetLocked(userID, role, d.UserID, *d.ProjetID) {
			matched = append(matched, d)
		}
	}
	return pageSlice(matched, p), int64(len(matched)), nil
}

// sharedOnProjetLocked reports whether the caller is the counterparty of
// the document owner on the active project the document is attached to.
func (m *MemoryStore) sharedOnProjetLocked(callerID uint, callerRole domain.Role, ownerID, projetID uint) bool {
	p, ok := m.projets[projetID]
	if !ok || !p.IsActive || p.AmoID == nil {
		return false
	}
	switch callerRole {
	case domain.RoleClient:
		return p.ClientID == callerID && *p.AmoID == ownerID
	case domain.RoleAMO:
		return *p.AmoID == callerID && p.ClientID == ownerID
	default:
		return false
	}
}

// UpdateDocument replaces the stored document.
func (m *MemoryStore) UpdateDocument(d domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[d.ID]; !ok {
		return nil
	}
	d.UpdatedAt = time.Now().UTC()
	d.User = nil
	m.documents[d.ID] = d
	return nil
}

// SoftDeleteDocument deactivates a document.
func (m *MemoryStore) SoftDeleteDocument(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return nil
	}
	d.IsActive = false
	d.UpdatedAt = time.Now().UTC()
	m.documents[id] = d
	return nil
}

// HasActiveProjetLink reports whether an active project pairs the client
// and AMO.
func (m *MemoryStore) HasActiveProjetLink(clientID, amoID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.projets {
		if p.IsActive && p.ClientID == clientID && p.AmoID != nil && *p.AmoID == amoID {
			return true, nil
		}
	}
	return false, nil
}
