package ops

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mailsift/internal/collect"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/db"
	"github.com/hpungsan/mailsift/internal/errors"
)

type fixture struct {
	db   *sql.DB
	sink *collect.Sink
	hub  *collect.Hub
	cfg  *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	hub := collect.NewHub()
	return &fixture{
		db:   database,
		sink: collect.NewSink(collect.NewSQLStore(database), hub, zerolog.Nop()),
		hub:  hub,
		cfg:  config.DefaultConfig(),
	}
}

func (f *fixture) scanText(t *testing.T, text string) *ScanOutput {
	t.Helper()
	out, err := Scan(context.Background(), f.db, f.sink, f.cfg, ScanInput{Text: text})
	require.NoError(t, err)
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := paginate(items, 2, 0, 10, 100)
	assert.Equal(t, []int{1, 2}, page)
	assert.Equal(t, Pagination{Limit: 2, Offset: 0, HasMore: true, Total: 5}, p)

	page, p = paginate(items, 2, 4, 10, 100)
	assert.Equal(t, []int{5}, page)
	assert.False(t, p.HasMore)

	page, p = paginate(items, 0, -3, 10, 100)
	assert.Equal(t, items, page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 0, p.Offset)

	page, _ = paginate(items, 500, 9, 10, 100)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, s)

	s, err = ParseScope("current")
	require.NoError(t, err)
	assert.Equal(t, ScopeCurrent, s)

	_, err = ParseScope("page")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestEmails_Scopes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// No scan yet: current is empty, not an error
	current, err := Emails(ctx, f.db, ScopeCurrent, "")
	require.NoError(t, err)
	assert.Empty(t, current)

	f.scanText(t, "amy@gmail.com bob@corp.io")
	f.scanText(t, "carol@yahoo.com amy@gmail.com")

	all, err := Emails(ctx, f.db, ScopeAll, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@gmail.com", "bob@corp.io", "carol@yahoo.com"}, all)

	current, err = Emails(ctx, f.db, ScopeCurrent, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol@yahoo.com", "amy@gmail.com"}, current)

	other, err := Emails(ctx, f.db, ScopeAll, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob@corp.io"}, other)

	_, err = Emails(ctx, f.db, ScopeAll, "bad filter")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
