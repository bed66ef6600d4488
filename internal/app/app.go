// Package app implements the marketplace business logic on top of the
// store and storage abstractions. Handlers stay thin; every rule about
// roles, ownership, lifecycle and uploads lives here.
package app

import (
	"regexp"
	"time"

	"experta/internal/auth"
	"experta/internal/storage"
	"experta/internal/store"
)

// UploadPolicy bounds the document upload pipeline.
type UploadPolicy struct {
	MaxFiles     int
	MaxBytes     int64
	AllowedMimes []string
}

// DefaultUploadPolicy mirrors the historical limits: five files of ten
// megabytes each, office documents and images only.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxFiles: 5,
		MaxBytes: 10 << 20,
		AllowedMimes: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"image/jpeg",
			"image/png",
		},
	}
}

func (p UploadPolicy) mimeAllowed(mime string) bool {
	for _, allowed := range p.AllowedMimes {
		if mime == allowed {
			return true
		}
	}
	return false
}

// App is the application service wiring store, file storage and tokens.
type App struct {
	store  store.Store
	files  storage.DocumentStorage
	tokens *auth.TokenIssuer
	upload UploadPolicy
	now    func() time.Time
}

// New constructs the application service.
func New(s store.Store, files storage.DocumentStorage, tokens *auth.TokenIssuer, upload UploadPolicy) *App {
	if upload.MaxFiles <= 0 {
		upload = DefaultUploadPolicy()
	}
	return &App{
		store:  s,
		files:  files,
		tokens: tokens,
		upload: upload,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the underlying store for health checks.
func (a *App) Store() store.Store { return a.store }

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern      = regexp.MustCompile(`^(\+33|0)[1-9](\d{2}){4}$`)
	postalCodePattern = regexp.MustCompile(`^\d{5}$`)
	siretPattern      = regexp.MustCompile(`^\d{14}$`)
	urlPattern        = regexp.MustCompile(`^https?://\S+$`)
)
