package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/report"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string // optional, default: ~/.mailsift/exports/<filter>-<timestamp>.<ext>
	Format string // txt, csv or pdf; default: from Path's extension, else txt
	Scope  string // all (default) or current
	Filter string // optional preset or domain suffix
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string        `json:"path"`
	Format     report.Format `json:"format"`
	Scope      string        `json:"scope"`
	Filter     string        `json:"filter"`
	Count      int           `json:"count"`
	ExportedAt int64         `json:"exported_at"`
}

// Listing gathers the addresses of a scope and filter into a renderable listing.
func Listing(ctx context.Context, database *sql.DB, scope, filter string, now time.Time) (report.Listing, error) {
	f, err := parseFilter(filter)
	if err != nil {
		return report.Listing{}, err
	}
	scope, err = ParseScope(scope)
	if err != nil {
		return report.Listing{}, err
	}
	emails, err := Emails(ctx, database, scope, filter)
	if err != nil {
		return report.Listing{}, err
	}

	title := "All collected emails"
	if scope == ScopeCurrent {
		title = "Current page emails"
	}
	l := report.Listing{Title: title, GeneratedAt: now, Emails: emails}
	if !f.IsZero() {
		l.Filter = f.Name()
	}
	return l, nil
}

// Export writes a listing to a file.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	format, err := exportFormat(input.Path, input.Format)
	if err != nil {
		return nil, err
	}
	f, err := parseFilter(input.Filter)
	if err != nil {
		return nil, err
	}

	// Determine export path
	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(f, format, now)
		if err != nil {
			return nil, err
		}
	}

	// Validate ALL paths (both user-provided and default)
	if err := ValidatePath(exportPath, cfg); err != nil {
		return nil, err
	}

	listing, err := Listing(ctx, database, input.Scope, input.Filter, now)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("export")
	}

	// Ensure parent directory exists
	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	if err := writeAtomic(exportPath, func(w *bufio.Writer) error {
		return report.Write(w, format, listing)
	}); err != nil {
		return nil, err
	}

	scope, _ := ParseScope(input.Scope)
	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Scope:      scope,
		Filter:     f.Name(),
		Count:      len(listing.Emails),
		ExportedAt: now.Unix(),
	}, nil
}

// exportFormat reconciles an explicit format with the path's extension.
func exportFormat(path, format string) (report.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if format == "" && ext != "" {
		format = ext
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	if path != "" && ext != "" && ext != f.Ext() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path extension %s does not match format %s", ext, f))
	}
	return f, nil
}

// writeAtomic writes to a temp file next to path and renames it into place,
// so an existing file is preserved when writing fails.
func writeAtomic(path string, write func(*bufio.Writer) error) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	if err := write(w); err != nil {
		return errors.NewInternal(err)
	}
	if err := w.Flush(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// Check if destination is a symlink (os.Rename would follow it)
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	// On Windows, os.Rename fails if the destination exists; fail safely
	// rather than delete-then-rename.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// defaultExportPath generates the default export path.
// Format: ~/.mailsift/exports/<filter>-<timestamp>.<ext>
func defaultExportPath(f address.Filter, format report.Format, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	timestamp := now.Format("2006-01-02T150405")
	filename := fmt.Sprintf("%s-%s%s", SanitizeForFilename(f.Name()), timestamp, format.Ext())
	return filepath.Join(dir, filename), nil
}
