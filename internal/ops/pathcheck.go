package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/errors"
)

// BaseDirName is the per-user data directory under $HOME.
const BaseDirName = ".mailsift"

var exportExtensions = map[string]bool{
	".txt": true,
	".csv": true,
	".pdf": true,
}

// ValidatePath checks an export destination:
//   - no ".." components
//   - a .txt, .csv or .pdf extension
//   - directly inside ~/.mailsift/exports or an allowed_paths entry (no subdirectories)
//   - neither the file nor its parent directory is a symlink
//
// AllowUnsafePaths lifts the directory rule only. Requiring the parent to be an
// allowed directory itself leaves no intermediate component to swap between
// validation and open; openFileNoFollow covers the final one.
func ValidatePath(path string, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	if !exportExtensions[strings.ToLower(filepath.Ext(absPath))] {
		return errors.NewInvalidRequest("path must have a .txt, .csv or .pdf extension")
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		dirs, err := allowedExportDirs(cfg)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !slices.Contains(dirs, parent) {
			return errors.NewInvalidRequest(
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v", dirs))
		}
		if isSymlink(parent) {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if isSymlink(absPath) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// allowedExportDirs returns the default exports directory plus every absolute
// allowed_paths entry. Entries that are themselves symlinks are resolved.
func allowedExportDirs(cfg *config.Config) ([]string, error) {
	def, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{def}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if !filepath.IsAbs(p) {
				continue
			}
			p = filepath.Clean(p)
			if isSymlink(p) {
				resolved, err := filepath.EvalSymlinks(p)
				if err != nil {
					return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
				}
				p = resolved
			}
			dirs = append(dirs, p)
		}
	}
	return dirs, nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// DefaultExportsDir returns ~/.mailsift/exports.
func DefaultExportsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, BaseDirName, "exports"), nil
}

// containsTraversal reports a ".." component, splitting on "/" on every platform.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", "..", "-")

// SanitizeForFilename turns a filter name into a safe file name fragment.
func SanitizeForFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, filenameReplacer.Replace(s))

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
