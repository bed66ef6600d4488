package app

import "errors"

// User-facing sentinel errors. Messages are shown to clients as-is, so
// they are written in French like the rest of the API surface.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password to
	// avoid account enumeration.
	ErrInvalidCredentials = errors.New("Email ou mot de passe incorrect")

	ErrEmailAlreadyExists = errors.New("Un compte existe déjà avec cette adresse email")

	ErrUserNotFound     = errors.New("Utilisateur non trouvé")
	ErrProjetNotFound   = errors.New("Projet non trouvé")
	ErrMissionNotFound  = errors.New("Mission non trouvée")
	ErrDocumentNotFound = errors.New("Document non trouvé")

	ErrForbidden = errors.New("Accès non autorisé")

	// ErrLastAdmin guards the final active administrator against deletion.
	ErrLastAdmin = errors.New("Impossible de supprimer le dernier administrateur")

	// ErrProjetAlreadyClaimed is returned when the conditional claim update
	// matched no row because another AMO got there first.
	ErrProjetAlreadyClaimed = errors.New("Ce projet a déjà été pris en charge par un autre AMO")

	// ErrFileMissing is returned when document metadata exists but the
	// stored file does not.
	ErrFileMissing = errors.New("Fichier introuvable sur le serveur")
)

// ValidationError carries a user-facing message for a 400 response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
