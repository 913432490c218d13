package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", ".mailsift")

	db, err := Init(base)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, filepath.Join(base, "mailsift.db"))
	assert.DirExists(t, filepath.Join(base, "exports"))

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)

	objects := map[string][]string{
		"table": {"emails", "scans", "scan_emails", "settings"},
		"index": {"idx_emails_seq", "idx_emails_domain", "idx_scans_scanned_at"},
	}
	for kind, names := range objects {
		for _, name := range names {
			var got string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type=? AND name=?", kind, name).Scan(&got)
			assert.NoError(t, err, "%s %s", kind, name)
		}
	}
}

func TestInit_Reopen(t *testing.T) {
	dir := t.TempDir()

	first, err := Init(dir)
	require.NoError(t, err)
	_, err = first.Exec(`INSERT INTO settings (key, value) VALUES ('auto_scan', 'true')`)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Init(dir)
	require.NoError(t, err)
	defer second.Close()

	version, err := GetUserVersion(second)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	var value string
	require.NoError(t, second.QueryRow(`SELECT value FROM settings WHERE key = 'auto_scan'`).Scan(&value))
	assert.Equal(t, "true", value)
}

func TestUserVersion(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, SetUserVersion(db, 99))
	version, err := GetUserVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 99, version)
}

func TestScanEmails_ForeignKey(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO scan_emails (scan_id, position, canonical) VALUES ('missing', 0, 'amy@corp.io')`)
	assert.Error(t, err)
}

func TestInit_BaseDirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	_, err := Init(path)
	assert.Error(t, err)
}
