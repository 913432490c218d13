package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/errors"
)

// Email is one collected address as stored.
type Email struct {
	Address     string `json:"email"`
	Local       string `json:"local_part"`
	Domain      string `json:"domain"`
	FirstSeenAt int64  `json:"first_seen_at"`
	LastSeenAt  int64  `json:"last_seen_at"`
	SeenCount   int    `json:"seen_count"`
}

// ScanSource summarizes one source of a scan.
type ScanSource struct {
	Source string `json:"source"`
	Found  int    `json:"found"`
	Error  string `json:"error,omitempty"`
}

// Scan is one recorded scan run. Emails is the scan's current-page list in
// first-occurrence order; it is only populated by GetScan and GetLatestScan.
type Scan struct {
	ID        string       `json:"id"`
	Sources   []ScanSource `json:"sources"`
	Found     int          `json:"found"`
	Added     int          `json:"added"`
	ScannedAt int64        `json:"scanned_at"`
	Emails    []string     `json:"emails,omitempty"`
}

// AddEmails merges addrs into the collected set in one transaction and returns
// the canonical forms that were not present before, in input order.
// Addresses already collected get last_seen_at and seen_count bumped.
func AddEmails(ctx context.Context, db *sql.DB, addrs []address.Address, now int64) ([]string, error) {
	added := []string{}
	if len(addrs) == 0 {
		return added, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM emails`).Scan(&seq); err != nil {
		return nil, errors.NewInternal(err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO emails (canonical, local_part, domain, first_seen_at, last_seen_at, seen_count, seq)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer insert.Close()

	touch, err := tx.PrepareContext(ctx, `
		UPDATE emails SET last_seen_at = ?, seen_count = seen_count + 1 WHERE canonical = ?
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer touch.Close()

	for _, a := range addrs {
		canonical := a.Canonical()
		res, err := insert.ExecContext(ctx, canonical, a.Local, a.Domain, now, now, seq+1)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if n == 1 {
			seq++
			added = append(added, canonical)
			continue
		}
		if _, err := touch.ExecContext(ctx, now, canonical); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return added, nil
}

// ListEmails returns every collected address in insertion order.
func ListEmails(ctx context.Context, db *sql.DB) ([]Email, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT canonical, local_part, domain, first_seen_at, last_seen_at, seen_count
		FROM emails
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	emails := []Email{}
	for rows.Next() {
		var e Email
		if err := rows.Scan(&e.Address, &e.Local, &e.Domain, &e.FirstSeenAt, &e.LastSeenAt, &e.SeenCount); err != nil {
			return nil, errors.NewInternal(err)
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return emails, nil
}

// GetEmail retrieves one collected address by canonical form.
func GetEmail(ctx context.Context, db *sql.DB, canonical string) (*Email, error) {
	var e Email
	err := db.QueryRowContext(ctx, `
		SELECT canonical, local_part, domain, first_seen_at, last_seen_at, seen_count
		FROM emails WHERE canonical = ?
	`, canonical).Scan(&e.Address, &e.Local, &e.Domain, &e.FirstSeenAt, &e.LastSeenAt, &e.SeenCount)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(canonical)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &e, nil
}

// CountEmails returns the size of the collected set.
func CountEmails(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ClearEmails empties the collected set and returns how many addresses were removed.
// Scan history is kept.
func ClearEmails(ctx context.Context, db *sql.DB) (int, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM emails`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// InsertScan records a scan and its ordered address list.
func InsertScan(ctx context.Context, db *sql.DB, s *Scan) error {
	sourcesJSON, err := json.Marshal(s.Sources)
	if err != nil {
		return errors.NewInternal(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scans (id, sources_json, found, added, scanned_at) VALUES (?, ?, ?, ?, ?)
	`, s.ID, string(sourcesJSON), s.Found, s.Added, s.ScannedAt); err != nil {
		return errors.NewInternal(err)
	}

	for i, email := range s.Emails {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scan_emails (scan_id, position, canonical) VALUES (?, ?, ?)
		`, s.ID, i, email); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetScan retrieves a scan with its address list.
func GetScan(ctx context.Context, db *sql.DB, id string) (*Scan, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, sources_json, found, added, scanned_at FROM scans WHERE id = ?
	`, id)
	s, err := scanScan(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := loadScanEmails(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetLatestScan retrieves the most recent scan with its address list.
func GetLatestScan(ctx context.Context, db *sql.DB) (*Scan, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, sources_json, found, added, scanned_at FROM scans
		ORDER BY scanned_at DESC, id DESC LIMIT 1
	`)
	s, err := scanScan(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("latest scan")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := loadScanEmails(ctx, db, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListScans returns scan summaries, newest first, and the total count.
func ListScans(ctx context.Context, db *sql.DB, limit, offset int) ([]Scan, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, sources_json, found, added, scanned_at FROM scans
		ORDER BY scanned_at DESC, id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	scans := []Scan{}
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		scans = append(scans, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return scans, total, nil
}

// GetSetting returns the stored value for key and whether it exists.
func GetSetting(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// SetSetting upserts one setting.
func SetSetting(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(row rowScanner) (*Scan, error) {
	var (
		s           Scan
		sourcesJSON string
	)
	if err := row.Scan(&s.ID, &sourcesJSON, &s.Found, &s.Added, &s.ScannedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &s.Sources); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadScanEmails(ctx context.Context, db *sql.DB, s *Scan) error {
	rows, err := db.QueryContext(ctx, `
		SELECT canonical FROM scan_emails WHERE scan_id = ? ORDER BY position ASC
	`, s.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	s.Emails = []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return errors.NewInternal(err)
		}
		s.Emails = append(s.Emails, email)
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
