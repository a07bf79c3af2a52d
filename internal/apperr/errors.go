// Package apperr regroupe les erreurs métier partagées par les posts et les likes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAuthorization = errors.New("authorization denied")

	// Les deux refus restent distincts mais partagent ErrAuthorization
	ErrEmailNotVerified = fmt.Errorf("%w: email not verified", ErrAuthorization)
	ErrNotOwner         = fmt.Errorf("%w: not the author", ErrAuthorization)
)

// ValidationError porte un message par champ invalide
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Status traduit une erreur métier en code HTTP
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	}
	if _, ok := IsValidation(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Body construit la réponse JSON associée à l'erreur ; internalMsg sert pour les erreurs 500
func Body(err error, internalMsg string) map[string]interface{} {
	switch {
	case errors.Is(err, ErrEmailNotVerified):
		return map[string]interface{}{
			"error":    "Vous devez vérifier votre email",
			"code":     "email_not_verified",
			"redirect": "/verify-email",
		}
	case errors.Is(err, ErrAuthorization):
		return map[string]interface{}{
			"error":    "Vous n'êtes pas autorisé à effectuer cette action",
			"code":     "forbidden",
			"redirect": "/posts",
		}
	case errors.Is(err, ErrNotFound):
		return map[string]interface{}{"error": "Post non trouvé"}
	}
	if verr, ok := IsValidation(err); ok {
		return map[string]interface{}{"error": "Données invalides", "fields": verr.Fields}
	}
	return map[string]interface{}{"error": internalMsg}
}

// Level donne la sévérité de log : WARN côté client, ERROR côté serveur
func Level(err error) string {
	if Status(err) >= http.StatusInternalServerError {
		return "ERROR"
	}
	return "WARN"
}
