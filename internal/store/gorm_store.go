package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"experta/internal/domain"
)

// GormStore implements Store on GORM. The driver is selected at open time
// so production runs Postgres while tests run in-memory SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &ProjetModel{}, &MissionModel{}, &DocumentModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Ping verifies the underlying connection is alive.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func paginate(q *gorm.DB, p Page) *gorm.DB {
	if p.Limit <= 0 {
		return q
	}
	return q.Offset(p.Offset()).Limit(p.Limit)
}

// tagContains builds a portable containment match over a JSON string array
// column. Tags are stored normalized, so an exact quoted match suffices.
func tagContains(column string) string {
	return "CAST(" + column + " AS TEXT) LIKE ?"
}

func tagPattern(tag string) string {
	return `%"` + domain.NormalizeTag(tag) + `"%`
}

// CreateUser inserts a user and backfills the generated ID.
func (s *GormStore) CreateUser(u *domain.User) error {
	model := userToModel(*u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	*u = userFromModel(model)
	return nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id uint) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email (stored lowercase).
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", strings.ToLower(email)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns users matching the filter, newest first.
func (s *GormStore) ListUsers(f UserFilter, p Page) ([]domain.User, int64, error) {
	q := s.db.Model(&UserModel{})
	if f.Role != nil {
		q = q.Where("role = ?", string(*f.Role))
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []UserModel
	if err := paginate(q.Order("created_at DESC"), p).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return usersFromModels(models), total, nil
}

// UpdateUser saves the full user row.
func (s *GormStore) UpdateUser(u domain.User) error {
	model := userToModel(u)
	err := s.db.Model(&UserModel{}).Where("id = ?", u.ID).Select("*").Omit("id", "created_at").Updates(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

// DeleteUser removes the row permanently.
func (s *GormStore) DeleteUser(id uint) error {
	return s.db.Delete(&UserModel{}, "id = ?", id).Error
}

// CountAdmins counts active admin accounts.
func (s *GormStore) CountAdmins() (int64, error) {
	var count int64
	err := s.db.Model(&UserModel{}).
		Where("role = ? AND is_active = ?", string(domain.RoleAdmin), true).
		Count(&count).Error
	return count, err
}

// TouchLastLogin stamps the last successful login time.
func (s *GormStore) TouchLastLogin(id uint, at time.Time) error {
	return s.db.Model(&UserModel{}).Where("id = ?", id).
		Updates(map[string]any{"last_login": at, "updated_at": at}).Error
}

// ListProfessionalsByTag returns active professionals carrying a trade tag.
func (s *GormStore) ListProfessionalsByTag(role domain.Role, tag string, p Page) ([]domain.User, int64, error) {
	q := s.db.Model(&UserModel{}).
		Where("role = ? AND is_active = ?", string(role), true).
		Where(tagContains("tags_metiers"), tagPattern(tag))
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []UserModel
	if err := paginate(q.Order("note_fiabilite DESC"), p).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return usersFromModels(models), total, nil
}

// ListProfessionalsByZone returns active professionals covering a zone.
func (s *GormStore) ListProfessionalsByZone(role domain.Role, zone string, p Page) ([]domain.User, int64, error) {
	q := s.db.Model(&UserModel{}).
		Where("role = ? AND is_active = ?", string(role), true).
		Where(tagContains("zone_intervention"), tagPattern(zone))
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []UserModel
	if err := paginate(q.Order("note_fiabilite DESC"), p).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return usersFromModels(models), total, nil
}

// ListTopRated returns the best rated active professionals of a role.
func (s *GormStore) ListTopRated(role domain.Role, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var models []UserModel
	err := s.db.
		Where("role = ? AND is_active = ? AND note_fiabilite IS NOT NULL", string(role), true).
		Order("note_fiabilite DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return usersFromModels(models), nil
}

// ListAMOsMatchingZone returns active AMOs whose intervention zones cover
// the given postal code, its department prefix or the city. Zone sets are
// small, so matching happens in-process.
func (s *GormStore) ListAMOsMatchingZone(postalCode, city string) ([]domain.User, error) {
	var models []UserModel
	err := s.db.
		Where("role = ? AND is_active = ?", string(domain.RoleAMO), true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	matched := make([]domain.User, 0)
	for _, m := range models {
		u := userFromModel(m)
		if zoneMatches(u.ZoneIntervention, postalCode, city) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func zoneMatches(zones []string, postalCode, city string) bool {
	department := ""
	if len(postalCode) >= 2 {
		department = postalCode[:2]
	}
	for _, zone := range zones {
		z := domain.NormalizeTag(zone)
		if z == "" {
			continue
		}
		if z == strings.ToLower(city) || z == postalCode || (department != "" && z == department) {
			return true
		}
	}
	return false
}

// PopularUserTags aggregates trade tag usage over active professionals.
func (s *GormStore) PopularUserTags(limit int) ([]domain.TagCount, error) {
	var models []UserModel
	err := s.db.Select("tags_metiers").
		Where("is_active = ?", true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	lists := make([][]string, 0, len(models))
	for _, m := range models {
		lists = append(lists, stringsFromJSON(m.TagsMetiers))
	}
	return countTags(lists, limit), nil
}

// CreateProjet inserts a project and backfills the generated ID.
func (s *GormStore) CreateProjet(p *domain.Projet) error {
	model := projetToModel(*p)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*p = projetFromModel(model)
	return nil
}

// GetProjetByID returns a project with its client, AMO and active missions.
func (s *GormStore) GetProjetByID(id uint) (domain.Projet, bool, error) {
	var model ProjetModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Projet{}, false, nil
		}
		return domain.Projet{}, false, err
	}
	projet := projetFromModel(model)
	if client, ok, err := s.GetUserByID(projet.ClientID); err != nil {
		return domain.Projet{}, false, err
	} else if ok {
		projet.Client = &client
	}
	if projet.AmoID != nil {
		if amo, ok, err := s.GetUserByID(*projet.AmoID); err != nil {
			return domain.Projet{}, false, err
		} else if ok {
			projet.Amo = &amo
		}
	}
	var missionModels []MissionModel
	if err := s.db.Where("project_id = ? AND is_active = ?", id, true).
		Order("date_creation DESC").
		Find(&missionModels).Error; err != nil {
		return domain.Projet{}, false, err
	}
	for _, m := range missionModels {
		projet.Missions = append(projet.Missions, missionFromModel(m))
	}
	return projet, true, nil
}

// ListProjets returns active projects matching the filter, newest first.
func (s *GormStore) ListProjets(f ProjetFilter, p Page) ([]domain.Projet, int64, error) {
	q := s.db.Model(&ProjetModel{}).Where("is_active = ?", true)
	if f.Statut != nil {
		q = q.Where("statut = ?", string(*f.Statut))
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.AmoID != nil {
		q = q.Where("amo_id = ?", *f.AmoID)
	}
	if f.City != "" {
		q = q.Where("LOWER(city) LIKE ?", "%"+strings.ToLower(f.City)+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []ProjetModel
	if err := paginate(q.Order("created_at DESC"), p).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Projet, 0, len(models))
	for _, m := range models {
		res = append(res, projetFromModel(m))
	}
	return res, total, nil
}

// UpdateProjet saves the full project row.
func (s *GormStore) UpdateProjet(p domain.Projet) error {
	model := projetToModel(p)
	return s.db.Model(&ProjetModel{}).Where("id = ?", p.ID).Select("*").Omit("id", "created_at").Updates(model).Error
}

// SoftDeleteProjet deactivates a project.
func (s *GormStore) SoftDeleteProjet(id uint) error {
	return s.db.Model(&ProjetModel{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

// ClaimProjet assigns the AMO with a single conditional UPDATE so two
// concurrent claims cannot both succeed.
func (s *GormStore) ClaimProjet(projetID, amoID uint, at time.Time) (bool, error) {
	res := s.db.Model(&ProjetModel{}).
		Where("id = ? AND amo_id IS NULL AND statut = ? AND is_active = ?",
			projetID, string(domain.StatutBrouillon), true).
		Updates(map[string]any{
			"amo_id":            amoID,
			"statut":            string(domain.StatutEnMiseEnRelation),
			"date_modification": at,
			"updated_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateMission inserts a mission and backfills the generated ID.
func (s *GormStore) CreateMission(m *domain.Mission) error {
	model := missionToModel(*m)
	if err := s.db.Create(&model).Error; err != nil {
		return err
	}
	*m = missionFromModel(model)
	return nil
}

// GetMissionByID returns a mission by ID.
func (s *GormStore) GetMissionByID(id uint) (domain.Mission, bool, error) {
	var model MissionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Mission{}, false, nil
		}
		return domain.Mission{}, false, err
	}
	return missionFromModel(model), true, nil
}

// ListMissions returns active missions matching the filter, newest first.
func (s *GormStore) ListMissions(f MissionFilter, p Page) ([]domain.Mission, int64, error) {
	q := s.db.Model(&MissionModel{}).Where("is_active = ?", true)
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.Statut != nil {
		q = q.Where("statut = ?", string(*f.Statut))
	}
	if f.Tag != "" {
		q = q.Where(tagContains("tags_metiers"), tagPattern(f.Tag))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []MissionModel
	if err := paginate(q.Order("date_creation DESC"), p).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.Mission, 0, len(models))
	for _, m := range models {
		res = append(res, missionFromModel(m))
	}
	return res, total, nil
}

// UpdateMission saves the full mission row.
func (s *GormStore) UpdateMission(m domain.Mission) error {
	model := missionToModel(m)
	return s.db.Model(&MissionModel{}).Where("id = ?", m.ID).Select("*").Omit("id", "created_at").Updates(model).Error
}

// SoftDeleteMission deactivates a mission.
func (s *GormStore) SoftDeleteMission(id uint) error {
	return s.db.Model(&MissionModel{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

// PopularMissionTags aggregates trade tag usage over active missions.
func (s *GormStore) PopularMissionTags(limit int) ([]domain.TagCount, error) {
	var models []MissionModel
	err := s.db.Select("tags_metiers").
		Where("is_active = ?", true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	lists := make([][]string, 0, len(models))
	for _, m := range models {
		lists = append(lists, stringsFromJSON(m.TagsMetiers))
	}
	return countTags(lists, limit), nil
}

// CreateDocuments inserts a batch in one transaction and backfills IDs.
// All-or-nothing: a failed insert rolls back the whole batch so callers
// can compensate stored files.
func (s *GormStore) CreateDocuments(docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, d := range docs {
			model := documentToModel(*d)
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			*d = documentFromModel(model)
		}
		return nil
	})
}

// GetDocumentByID returns a document by ID.
func (s *GormStore) GetDocumentByID(id uint) (domain.Document, bool, error) {
	var model DocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

// ListDocuments returns active documents matching the filter, newest first.
func (s *GormStore) ListDocuments(f DocumentFilter, p Page) ([]domain.Document, int64, error) {
	q := s.db.Model(&DocumentModel{}).Where("is_active = ?", true)
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}
	if f.MimeType != "" {
		q = q.Where("mime_type = ?", f.MimeType)
	}
	if f.ProjetID != nil {
		q = q.Where("projet_id = ?", *f.ProjetID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []DocumentModel
	if err := paginate(q.Order("created_at DESC"), p).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return documentsFromModels(models), total, nil
}

// ListVisibleDocuments returns own active documents plus counterparty
// documents shared on the active project they are attached to, with the
// caller on the other side of that project. Access is recomputed on every
// call, never cached.
func (s *GormStore) ListVisibleDocuments(userID uint, role domain.Role, mimeType string, p Page) ([]domain.Document, int64, error) {
	q := s.db.Model(&DocumentModel{}).Where("documents.is_active = ?", true)
	switch role {
	case domain.RoleClient:
		q = q.Where(
			"documents.user_id = ? OR (documents.visibilite = ? AND EXISTS ("+
				"SELECT 1 FROM projets WHERE projets.id = documents.projet_id AND projets.is_active = ? AND projets.client_id = ? AND projets.amo_id = documents.user_id))",
			userID, string(domain.VisibilitePartage), true, userID)
	case domain.RoleAMO:
		q = q.Where(
			"documents.user_id = ? OR (documents.visibilite = ? AND EXISTS ("+
				"SELECT 1 FROM projets WHERE projets.id = documents.projet_id AND projets.is_active = ? AND projets.amo_id = ? AND projets.client_id = documents.user_id))",
			userID, string(domain.VisibilitePartage), true, userID)
	default:
		q = q.Where("documents.user_id = ?", userID)
	}
	if mimeType != "" {
		q = q.Where("documents.mime_type = ?", mimeType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []DocumentModel
	if err := paginate(q.Order("documents.created_at DESC"), p).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return documentsFromModels(models), total, nil
}

// UpdateDocument saves the full document row.
func (s *GormStore) UpdateDocument(d domain.Document) error {
	model := documentToModel(d)
	return s.db.Model(&DocumentModel{}).Where("id = ?", d.ID).Select("*").Omit("id", "created_at").Updates(model).Error
}

// SoftDeleteDocument deactivates a document; the stored file is kept.
func (s *GormStore) SoftDeleteDocument(id uint) error {
	return s.db.Model(&DocumentModel{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

// HasActiveProjetLink reports whether an active project pairs the client
// and AMO.
func (s *GormStore) HasActiveProjetLink(clientID, amoID uint) (bool, error) {
	var count int64
	err := s.db.Model(&ProjetModel{}).
		Where("is_active = ? AND client_id = ? AND amo_id = ?", true, clientID, amoID).
		Count(&count).Error
	return count > 0, err
}

func usersFromModels(models []UserModel) []domain.User {
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res
}

func documentsFromModels(models []DocumentModel) []domain.Document {
	res := make([]domain.Document, 0, len(models))
	for _, m := range models {
		res = append(res, documentFromModel(m))
	}
	return res
}

// countTags tallies tag occurrences and returns the top entries, most
// frequent first, ties broken alphabetically for stable output.
func countTags(lists [][]string, limit int) []domain.TagCount {
	if limit <= 0 {
		limit = 10
	}
	counts := make(map[string]int)
	for _, tags := range lists {
		for _, tag := range tags {
			counts[tag]++
		}
	}
	out := make([]domain.TagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, domain.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
