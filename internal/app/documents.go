package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"experta/internal/auth"
	"experta/internal/domain"
	"experta/internal/storage"
	"experta/internal/store"
)

// UploadFile is one incoming multipart file.
type UploadFile struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// UploadMeta is the shared metadata for an upload batch.
type UploadMeta struct {
	Nom        string
	Type       string
	ProjetID   *uint
	Visibilite string
}

// DocumentMetaInput is the admin metadata payload for documents that were
// not produced by the upload pipeline (external links, migrations).
type DocumentMetaInput struct {
	UserID        uint
	Nom           string
	Type          string
	LienFichier   string
	TailleFichier int64
	FormatFichier string
	NomOriginal   string
	MimeType      string
	ProjetID      *uint
	AuthorType    string
	Visibilite    string
}

// UploadDocuments stores an upload batch: every file is written to the
// storage backend first, then all rows are inserted in one transaction.
// If the insert fails, every file written this batch is deleted again so
// storage and database stay consistent.
func (a *App) UploadDocuments(ctx context.Context, caller *auth.Claims, files []UploadFile, meta UploadMeta) ([]domain.Document, error) {
	if caller == nil || (caller.Role != domain.RoleClient && caller.Role != domain.RoleAMO) {
		return nil, ErrForbidden
	}
	if len(files) == 0 {
		return nil, invalid("Aucun fichier fourni")
	}
	if len(files) > a.upload.MaxFiles {
		return nil, invalid(fmt.Sprintf("Maximum %d fichiers par envoi", a.upload.MaxFiles))
	}
	docType := domain.DocAutre
	if strings.TrimSpace(meta.Type) != "" {
		parsed, ok := domain.ParseDocumentType(meta.Type)
		if !ok {
			return nil, invalid("Le type de document est invalide")
		}
		docType = parsed
	}
	// Project-attached uploads are meant for the counterparty, so they
	// default to shared; standalone uploads stay private.
	visibilite := domain.VisibilitePrive
	if meta.ProjetID != nil {
		visibilite = domain.VisibilitePartage
	}
	if strings.TrimSpace(meta.Visibilite) != "" {
		switch domain.Visibilite(meta.Visibilite) {
		case domain.VisibilitePrive, domain.VisibilitePartage:
			visibilite = domain.Visibilite(meta.Visibilite)
		default:
			return nil, invalid("La visibilité est invalide")
		}
	}
	if meta.ProjetID != nil {
		projet, err := a.GetProjet(*meta.ProjetID)
		if err != nil {
			return nil, err
		}
		onProjet := (caller.Role == domain.RoleClient && projet.ClientID == caller.UserID) ||
			(caller.Role == domain.RoleAMO && projet.AmoID != nil && *projet.AmoID == caller.UserID)
		if !onProjet {
			return nil, ErrForbidden
		}
	}
	for _, f := range files {
		if f.Size > a.upload.MaxBytes {
			return nil, invalid(fmt.Sprintf("Fichier trop volumineux (max %s)", domain.FormatBytes(a.upload.MaxBytes)))
		}
		if !a.upload.mimeAllowed(f.MimeType) {
			return nil, invalid("Type de fichier non autorisé (PDF, DOC, DOCX, JPEG ou PNG)")
		}
	}

	savedKeys := make([]string, 0, len(files))
	cleanup := func() {
		for _, key := range savedKeys {
			if err := a.files.Delete(context.Background(), key); err != nil {
				slog.Warn("upload compensation failed", "key", key, "error", err)
			}
		}
	}

	docs := make([]*domain.Document, 0, len(files))
	now := a.now()
	for _, f := range files {
		storedName := storage.NewStoredName(f.Filename, now)
		key := storage.BuildKey(caller.Role, caller.UserID, storedName)
		if err := a.files.Save(ctx, key, f.Content, f.Size, f.MimeType); err != nil {
			cleanup()
			return nil, fmt.Errorf("save file: %w", err)
		}
		savedKeys = append(savedKeys, key)

		nom := strings.TrimSpace(meta.Nom)
		if nom == "" {
			nom = f.Filename
		}
		docs = append(docs, &domain.Document{
			UserID:        caller.UserID,
			Nom:           nom,
			Type:          docType,
			LienFichier:   key,
			TailleFichier: f.Size,
			FormatFichier: strings.TrimPrefix(strings.ToLower(path.Ext(f.Filename)), "."),
			NomOriginal:   f.Filename,
			NomFichier:    storedName,
			MimeType:      f.MimeType,
			CheminFichier: key,
			IsActive:      true,
			ProjetID:      meta.ProjetID,
			AuthorType:    caller.Role,
			Visibilite:    visibilite,
		})
	}
	if err := a.store.CreateDocuments(docs); err != nil {
		cleanup()
		return nil, fmt.Errorf("insert documents: %w", err)
	}
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d)
	}
	return out, nil
}

// ListMyDocuments returns the caller's visible documents (own plus
// counterparty-shared) with statistics computed over the whole visible
// set, not just the requested page.
func (a *App) ListMyDocuments(caller *auth.Claims, mimeType string, p store.Page) ([]domain.Document, int64, domain.DocumentStats, error) {
	if caller == nil {
		return nil, 0, domain.DocumentStats{}, ErrForbidden
	}
	docs, total, err := a.store.ListVisibleDocuments(caller.UserID, caller.Role, mimeType, p)
	if err != nil {
		return nil, 0, domain.DocumentStats{}, fmt.Errorf("list documents: %w", err)
	}
	all, _, err := a.store.ListVisibleDocuments(caller.UserID, caller.Role, mimeType, store.Page{})
	if err != nil {
		return nil, 0, domain.DocumentStats{}, fmt.Errorf("document stats: %w", err)
	}
	// Statistics bucket by the human-readable file type shown in the
	// listing, not the raw enum.
	stats := domain.DocumentStats{ByType: make(map[string]int64)}
	for _, d := range all {
		stats.Total++
		stats.TotalSize += d.TailleFichier
		stats.ByType[domain.NewDocumentView(d).ReadableFileType]++
	}
	return docs, total, stats, nil
}

// checkDocumentAccess recomputes access on every call: owners always, and
// project counterparties when an active project links caller and owner.
func (a *App) checkDocumentAccess(caller *auth.Claims, doc domain.Document) (bool, error) {
	if caller == nil {
		return false, nil
	}
	if doc.UserID == caller.UserID {
		return true, nil
	}
	switch caller.Role {
	case domain.RoleAMO:
		return a.store.HasActiveProjetLink(doc.UserID, caller.UserID)
	case domain.RoleClient:
		return a.store.HasActiveProjetLink(caller.UserID, doc.UserID)
	default:
		return false, nil
	}
}

// GetMyDocument returns one active document the caller may access.
func (a *App) GetMyDocument(caller *auth.Claims, id uint) (domain.Document, error) {
	doc, ok, err := a.store.GetDocumentByID(id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	if !ok || !doc.IsActive {
		return domain.Document{}, ErrDocumentNotFound
	}
	allowed, err := a.checkDocumentAccess(caller, doc)
	if err != nil {
		return domain.Document{}, fmt.Errorf("check access: %w", err)
	}
	if !allowed {
		return domain.Document{}, ErrForbidden
	}
	return doc, nil
}

// DownloadDocument opens the stored file for streaming after access and
// presence checks.
func (a *App) DownloadDocument(ctx context.Context, caller *auth.Claims, id uint) (io.ReadCloser, int64, domain.Document, error) {
	doc, err := a.GetMyDocument(caller, id)
	if err != nil {
		return nil, 0, domain.Document{}, err
	}
	exists, err := a.files.Exists(ctx, doc.CheminFichier)
	if err != nil {
		return nil, 0, domain.Document{}, fmt.Errorf("stat file: %w", err)
	}
	if !exists {
		return nil, 0, domain.Document{}, ErrFileMissing
	}
	reader, size, err := a.files.Open(ctx, doc.CheminFichier)
	if err != nil {
		return nil, 0, domain.Document{}, fmt.Errorf("open file: %w", err)
	}
	return reader, size, doc, nil
}

// DeleteMyDocument soft-deletes an owned document. The stored file is
// kept on purpose so an admin restore stays possible.
func (a *App) DeleteMyDocument(caller *auth.Claims, id uint) error {
	doc, ok, err := a.store.GetDocumentByID(id)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if !ok || !doc.IsActive {
		return ErrDocumentNotFound
	}
	if caller == nil || doc.UserID != caller.UserID {
		return ErrForbidden
	}
	if err := a.store.SoftDeleteDocument(id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ListDocuments is the admin metadata listing.
func (a *App) ListDocuments(f store.DocumentFilter, p store.Page) ([]domain.Document, int64, error) {
	return a.store.ListDocuments(f, p)
}

// GetDocumentMeta returns one active document without ownership checks
// (admin surface).
func (a *App) GetDocumentMeta(id uint) (domain.Document, error) {
	doc, ok, err := a.store.GetDocumentByID(id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	if !ok || !doc.IsActive {
		return domain.Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

func validateDocumentMeta(in DocumentMetaInput) error {
	if strings.TrimSpace(in.Nom) == "" {
		return invalid("Le nom du document est requis")
	}
	if _, ok := domain.ParseDocumentType(in.Type); !ok {
		return invalid("Le type de document est invalide")
	}
	if strings.TrimSpace(in.LienFichier) == "" {
		return invalid("Le lien du fichier est requis")
	}
	if in.TailleFichier < 0 {
		return invalid("La taille du fichier doit être positive")
	}
	switch domain.Visibilite(in.Visibilite) {
	case domain.VisibilitePrive, domain.VisibilitePartage:
	default:
		return invalid("La visibilité est invalide")
	}
	switch domain.Role(in.AuthorType) {
	case domain.RoleClient, domain.RoleAMO:
	default:
		return invalid("Le type d'auteur est invalide")
	}
	return nil
}

// CreateDocumentMeta inserts a metadata row (admin surface).
func (a *App) CreateDocumentMeta(in DocumentMetaInput) (domain.Document, error) {
	if err := validateDocumentMeta(in); err != nil {
		return domain.Document{}, err
	}
	if _, err := a.GetUser(in.UserID); err != nil {
		return domain.Document{}, err
	}
	if in.ProjetID != nil {
		if _, err := a.GetProjet(*in.ProjetID); err != nil {
			return domain.Document{}, err
		}
	}
	doc := domain.Document{
		UserID:        in.UserID,
		Nom:           strings.TrimSpace(in.Nom),
		Type:          domain.DocumentType(in.Type),
		LienFichier:   in.LienFichier,
		TailleFichier: in.TailleFichier,
		FormatFichier: in.FormatFichier,
		NomOriginal:   in.NomOriginal,
		MimeType:      in.MimeType,
		CheminFichier: in.LienFichier,
		IsActive:      true,
		ProjetID:      in.ProjetID,
		AuthorType:    domain.Role(in.AuthorType),
		Visibilite:    domain.Visibilite(in.Visibilite),
	}
	batch := []*domain.Document{&doc}
	if err := a.store.CreateDocuments(batch); err != nil {
		return domain.Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// UpdateDocumentMeta replaces editable metadata fields (admin surface).
func (a *App) UpdateDocumentMeta(id uint, in DocumentMetaInput) (domain.Document, error) {
	doc, err := a.GetDocumentMeta(id)
	if err != nil {
		return domain.Document{}, err
	}
	if err := validateDocumentMeta(in); err != nil {
		return domain.Document{}, err
	}
	doc.Nom = strings.TrimSpace(in.Nom)
	doc.Type = domain.DocumentType(in.Type)
	doc.LienFichier = in.LienFichier
	doc.TailleFichier = in.TailleFichier
	doc.FormatFichier = in.FormatFichier
	doc.NomOriginal = in.NomOriginal
	doc.MimeType = in.MimeType
	doc.ProjetID = in.ProjetID
	doc.AuthorType = domain.Role(in.AuthorType)
	doc.Visibilite = domain.Visibilite(in.Visibilite)
	if err := a.store.UpdateDocument(doc); err != nil {
		return domain.Document{}, fmt.Errorf("update document: %w", err)
	}
	return a.GetDocumentMeta(id)
}

// DeleteDocumentMeta soft-deletes a document row (admin surface).
func (a *App) DeleteDocumentMeta(id uint) error {
	if _, err := a.GetDocumentMeta(id); err != nil {
		return err
	}
	if err := a.store.SoftDeleteDocument(id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
