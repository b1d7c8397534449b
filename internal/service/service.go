// Package service contains the business rules of starminder.
//
// THE THREE LAYERS:
//
//	Handler (HTTP / CLI)  → parses input, renders output
//	Service               → validates, enforces rules, orchestrates
//	Repository            → reads and writes SQLite
//
// Services take repository interfaces, never *sqlite.DB, so tests can pass
// in-memory fakes and the CLI can reuse exactly the same rules as the HTTP
// API. Services return apperror kinds; translating them to status codes is
// the handler's job.
package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/model"
)

// Field limits, mirrored from the column sizes the data was first modelled with.
const (
	MaxTagNameLength    = 100
	MaxVersionLength    = 50
	MaxLanguageLength   = 50
	DefaultReminderSize = 5
	MaxReminderSize     = 50
)

// validateStarFields checks the required provider fields of a star.
// Description is optional and stored as given.
func validateStarFields(f model.StarFields) error {
	required := []struct{ field, value string }{
		{"provider", f.Provider},
		{"providerId", f.ProviderID},
		{"owner", f.Owner},
		{"ownerId", f.OwnerID},
		{"name", f.Name},
		{"repoUrl", f.RepoURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.ValidationFailed(r.field, r.field+" is required")
		}
	}
	if f.StarCount < 0 {
		return apperror.ValidationFailed("starCount", "starCount must not be negative")
	}
	return nil
}

// validateScore rejects NaN and infinities, which SQLite would store but
// no ordering query could rank meaningfully.
func validateScore(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be a finite number", field))
	}
	return nil
}
