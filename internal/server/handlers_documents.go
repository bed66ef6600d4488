package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"experta/internal/app"
	"experta/internal/domain"
	"experta/internal/sanitize"
	"experta/internal/store"
)

// Upload bodies are bounded to the batch worst case: five files of ten
// megabytes plus form overhead.
const maxUploadBody = 55 << 20

func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Formulaire multipart invalide")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File["documents"]
	files := make([]app.UploadFile, 0, len(headers))
	opened := make([]io.Closer, 0, len(headers))
	defer func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}()
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Fichier illisible")
			return
		}
		opened = append(opened, file)
		files = append(files, app.UploadFile{
			Filename: header.Filename,
			Size:     header.Size,
			MimeType: header.Header.Get("Content-Type"),
			Content:  file,
		})
	}

	meta := app.UploadMeta{
		Nom:        sanitize.String(r.FormValue("nom")),
		Type:       r.FormValue("type"),
		Visibilite: r.FormValue("visibilite"),
	}
	if raw := r.FormValue("projetId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Le champ projetId est invalide")
			return
		}
		projetID := uint(id)
		meta.ProjetID = &projetID
	}

	docs, err := s.app.UploadDocuments(r.Context(), claimsFromRequest(r), files, meta)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	message := fmt.Sprintf("%d document(s) téléversé(s) avec succès", len(docs))
	writeSuccess(w, http.StatusCreated, message, domain.NewDocumentViews(docs))
}

func (s *Server) handleListMyDocuments(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	docs, total, stats, err := s.app.ListMyDocuments(claimsFromRequest(r), r.URL.Query().Get("mimeType"), page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"documents":  domain.NewDocumentViews(docs),
			"statistics": stats,
		},
		Pagination: newPagination(page, total),
	})
}

func (s *Server) handleGetMyDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	doc, err := s.app.GetMyDocument(claimsFromRequest(r), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewDocumentView(doc))
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	reader, size, doc, err := s.app.DownloadDocument(r.Context(), claimsFromRequest(r), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	defer reader.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := doc.NomOriginal
	if filename == "" {
		filename = doc.NomFichier
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	_, _ = io.Copy(w, reader)
}

func (s *Server) handleDeleteMyDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	if err := s.app.DeleteMyDocument(claimsFromRequest(r), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Document supprimé", nil)
}

// Admin metadata surface.

type documentMetaRequest struct {
	UserID        uint   `json:"userId"`
	Nom           string `json:"nom"`
	Type          string `json:"type"`
	LienFichier   string `json:"lienFichier"`
	TailleFichier int64  `json:"tailleFichier"`
	FormatFichier string `json:"formatFichier"`
	NomOriginal   string `json:"nomOriginal"`
	MimeType      string `json:"mimeType"`
	ProjetID      *uint  `json:"projetId"`
	AuthorType    string `json:"authorType"`
	Visibilite    string `json:"visibilite"`
}

func (r documentMetaRequest) toInput() app.DocumentMetaInput {
	return app.DocumentMetaInput{
		UserID:        r.UserID,
		Nom:           r.Nom,
		Type:          r.Type,
		LienFichier:   r.LienFichier,
		TailleFichier: r.TailleFichier,
		FormatFichier: r.FormatFichier,
		NomOriginal:   r.NomOriginal,
		MimeType:      r.MimeType,
		ProjetID:      r.ProjetID,
		AuthorType:    r.AuthorType,
		Visibilite:    r.Visibilite,
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filter := store.DocumentFilter{MimeType: r.URL.Query().Get("mimeType")}
	if raw := r.URL.Query().Get("type"); raw != "" {
		docType, ok := domain.ParseDocumentType(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Le type de document est invalide")
			return
		}
		filter.Type = &docType
	}
	page := pageFromQuery(r)
	docs, total, err := s.app.ListDocuments(filter, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewDocumentViews(docs), page, total)
}

func (s *Server) handleCreateDocumentMeta(w http.ResponseWriter, r *http.Request) {
	var req documentMetaRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	doc, err := s.app.CreateDocumentMeta(req.toInput())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Document créé", domain.NewDocumentView(doc))
}

func (s *Server) handleGetDocumentMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	doc, err := s.app.GetDocumentMeta(id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", domain.NewDocumentView(doc))
}

func (s *Server) handleUpdateDocumentMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	var req documentMetaRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}
	doc, err := s.app.UpdateDocumentMeta(id, req.toInput())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Document mis à jour", domain.NewDocumentView(doc))
}

func (s *Server) handleDeleteDocumentMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	if err := s.app.DeleteDocumentMeta(id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Document supprimé", nil)
}

func (s *Server) handleDocumentsByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}
	page := pageFromQuery(r)
	docs, total, err := s.app.ListDocuments(store.DocumentFilter{UserID: &id}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewDocumentViews(docs), page, total)
}

func (s *Server) handleDocumentsByType(w http.ResponseWriter, r *http.Request) {
	docType, ok := domain.ParseDocumentType(r.PathValue("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Le type de document est invalide")
		return
	}
	page := pageFromQuery(r)
	docs, total, err := s.app.ListDocuments(store.DocumentFilter{Type: &docType}, page)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writePage(w, "", domain.NewDocumentViews(docs), page, total)
}
