// Package settings holds the two user-facing scan switches and their persistence.
package settings

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/hpungsan/mailsift/internal/db"
	"github.com/hpungsan/mailsift/internal/errors"
)

const (
	KeyCollectAllSources = "collect_all_sources"
	KeyAutoScan          = "auto_scan"
)

// Settings decide how a scan run covers its sources and whether it repeats.
type Settings struct {
	// CollectAllSources scans every given source; when false only the first
	// (active) source is scanned.
	CollectAllSources bool `json:"collect_all_sources"`
	// AutoScan enables the periodic scheduler in serve mode.
	AutoScan bool `json:"auto_scan"`
}

// Default returns the settings used before anything is saved.
func Default() Settings {
	return Settings{CollectAllSources: true, AutoScan: false}
}

// Patch is a partial update; nil fields are left alone.
type Patch struct {
	CollectAllSources *bool `json:"collect_all_sources,omitempty"`
	AutoScan          *bool `json:"auto_scan,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.CollectAllSources == nil && p.AutoScan == nil
}

// Apply returns s with the patch applied.
func (p Patch) Apply(s Settings) Settings {
	if p.CollectAllSources != nil {
		s.CollectAllSources = *p.CollectAllSources
	}
	if p.AutoScan != nil {
		s.AutoScan = *p.AutoScan
	}
	return s
}

// Load reads the stored settings, falling back to Default for missing keys.
func Load(ctx context.Context, database *sql.DB) (Settings, error) {
	s := Default()
	var err error
	if s.CollectAllSources, err = loadBool(ctx, database, KeyCollectAllSources, s.CollectAllSources); err != nil {
		return Settings{}, err
	}
	if s.AutoScan, err = loadBool(ctx, database, KeyAutoScan, s.AutoScan); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save stores every field of s.
func Save(ctx context.Context, database *sql.DB, s Settings) error {
	if err := db.SetSetting(ctx, database, KeyCollectAllSources, strconv.FormatBool(s.CollectAllSources)); err != nil {
		return err
	}
	return db.SetSetting(ctx, database, KeyAutoScan, strconv.FormatBool(s.AutoScan))
}

func loadBool(ctx context.Context, database *sql.DB, key string, def bool) (bool, error) {
	raw, ok, err := db.GetSetting(ctx, database, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return v, nil
}
