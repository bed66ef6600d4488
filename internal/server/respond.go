package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"experta/internal/app"
	"experta/internal/store"
)

// Every response uses the same envelope: success flag, user-facing French
// message, optional data and optional pagination block.
type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(p store.Page, total int64) *pagination {
	if p.Limit <= 0 {
		return nil
	}
	pages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		pages++
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return &pagination{Page: page, Limit: p.Limit, Total: total, TotalPages: pages}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writePage(w http.ResponseWriter, message string, data any, p store.Page, total int64) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data, Pagination: newPagination(p, total)})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// writeAppError maps application errors onto the HTTP taxonomy. Internal
// details are only exposed in development mode.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case app.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden), errors.Is(err, app.ErrLastAdmin):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrProjetNotFound),
		errors.Is(err, app.ErrMissionNotFound),
		errors.Is(err, app.ErrDocumentNotFound),
		errors.Is(err, app.ErrFileMissing):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists), errors.Is(err, app.ErrProjetAlreadyClaimed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "path", r.URL.Path, "error", err)
		msg := "Erreur interne du serveur"
		if s.development {
			msg = msg + ": " + err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
	}
}
