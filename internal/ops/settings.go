package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/settings"
)

// SettingsOutput contains the result of the settings operations.
type SettingsOutput struct {
	Settings settings.Settings `json:"settings"`
	Changed  bool              `json:"changed"`
	// Previous is the value before an update; equal to Settings for reads.
	Previous settings.Settings `json:"-"`
}

// GetSettings returns the stored settings (defaults when never saved).
func GetSettings(ctx context.Context, database *sql.DB) (*SettingsOutput, error) {
	s, err := settings.Load(ctx, database)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Settings: s, Previous: s}, nil
}

// UpdateSettings applies a partial update and persists the result.
func UpdateSettings(ctx context.Context, database *sql.DB, patch settings.Patch) (*SettingsOutput, error) {
	if patch.IsEmpty() {
		return nil, errors.NewInvalidRequest("no settings to update: set collect_all_sources or auto_scan")
	}

	prev, err := settings.Load(ctx, database)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(prev)
	if err := settings.Save(ctx, database, next); err != nil {
		return nil, err
	}
	return &SettingsOutput{Settings: next, Changed: next != prev, Previous: prev}, nil
}
