// Package interfaces defines service contracts for the Fincept terminal server.
package interfaces

import (
	"github.com/fincept/terminal/internal/models"
)

// SourceConfigStore persists the data-type mappings and per-provider source
// configs. Load is called once at startup; Save rewrites the file wholesale
// on every mutation. Read failures are absorbed by callers, which substitute
// in-memory defaults.
type SourceConfigStore interface {
	Load() (*models.SourceSettings, error)
	Save(settings *models.SourceSettings) error
	Path() string
}
