package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addrs(ss ...string) []address.Address {
	out := make([]address.Address, len(ss))
	for i, s := range ss {
		out[i] = address.MustParse(s)
	}
	return out
}

func TestAddEmails_Union(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	added, err := AddEmails(ctx, db, addrs("a@x.com", "b@x.com"), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, added)

	added, err = AddEmails(ctx, db, addrs("B@X.com", "c@x.com"), 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@x.com"}, added)

	n, err := CountEmails(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	b, err := GetEmail(ctx, db, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.FirstSeenAt)
	assert.Equal(t, int64(200), b.LastSeenAt)
	assert.Equal(t, 2, b.SeenCount)
}

func TestAddEmails_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := AddEmails(ctx, db, addrs("a@x.com"), 1)
	require.NoError(t, err)

	added, err := AddEmails(ctx, db, addrs("a@x.com"), 2)
	require.NoError(t, err)
	assert.Empty(t, added)

	n, err := CountEmails(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddEmails_Empty(t *testing.T) {
	added, err := AddEmails(context.Background(), openTestDB(t), nil, 1)
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.Empty(t, added)
}

func TestListEmails_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := AddEmails(ctx, db, addrs("z@x.com", "a@x.com"), 1)
	require.NoError(t, err)
	_, err = AddEmails(ctx, db, addrs("m@x.com", "z@x.com"), 2)
	require.NoError(t, err)

	emails, err := ListEmails(ctx, db)
	require.NoError(t, err)

	got := make([]string, len(emails))
	for i, e := range emails {
		got[i] = e.Address
	}
	assert.Equal(t, []string{"z@x.com", "a@x.com", "m@x.com"}, got)
	assert.Equal(t, "x.com", emails[0].Domain)
	assert.Equal(t, "z", emails[0].Local)
}

func TestClearEmails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := AddEmails(ctx, db, addrs("a@x.com", "b@x.com"), 1)
	require.NoError(t, err)
	require.NoError(t, InsertScan(ctx, db, &Scan{ID: "S1", Sources: []ScanSource{}, ScannedAt: 1}))

	removed, err := ClearEmails(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	n, err := CountEmails(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Scan history survives a clear
	_, err = GetScan(ctx, db, "S1")
	require.NoError(t, err)

	// Clearing an empty set is fine
	removed, err = ClearEmails(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestGetEmail_NotFound(t *testing.T) {
	_, err := GetEmail(context.Background(), openTestDB(t), "nobody@x.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestInsertAndGetScan(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	s := &Scan{
		ID: "01SCAN",
		Sources: []ScanSource{
			{Source: "page.html", Found: 2},
			{Source: "missing.txt", Error: "file not found"},
		},
		Found:     2,
		Added:     1,
		ScannedAt: 500,
		Emails:    []string{"b@x.com", "a@x.com"},
	}
	require.NoError(t, InsertScan(ctx, db, s))

	got, err := GetScan(ctx, db, "01SCAN")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestGetLatestScan(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := GetLatestScan(ctx, db)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, InsertScan(ctx, db, &Scan{ID: "A", Sources: []ScanSource{}, ScannedAt: 10, Emails: []string{"a@x.com"}}))
	require.NoError(t, InsertScan(ctx, db, &Scan{ID: "B", Sources: []ScanSource{}, ScannedAt: 20}))

	latest, err := GetLatestScan(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "B", latest.ID)
	assert.NotNil(t, latest.Emails)
	assert.Empty(t, latest.Emails)
}

func TestListScans(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, InsertScan(ctx, db, &Scan{ID: id, Sources: []ScanSource{}, ScannedAt: int64(i)}))
	}

	scans, total, err := ListScans(ctx, db, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, scans, 2)
	assert.Equal(t, "C", scans[0].ID)
	assert.Equal(t, "B", scans[1].ID)

	scans, _, err = ListScans(ctx, db, 2, 2)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "A", scans[0].ID)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, ok, err := GetSetting(ctx, db, "auto_scan")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetSetting(ctx, db, "auto_scan", "true"))
	require.NoError(t, SetSetting(ctx, db, "auto_scan", "false"))

	v, ok, err := GetSetting(ctx, db, "auto_scan")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", v)
}
