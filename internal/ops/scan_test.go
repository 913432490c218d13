package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mailsift/internal/db"
	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/settings"
)

func TestScan_Text(t *testing.T) {
	f := newFixture(t)
	ch, cancel := f.hub.Subscribe()
	defer cancel()

	out := f.scanText(t, "Reach jane.doe87@gmail.com or support@company.com; logo.png@cdn.example.com JANE.DOE87@gmail.com supportteam@company.com")

	assert.Equal(t, []string{"jane.doe87@gmail.com", "supportteam@company.com"}, out.Emails)
	assert.Equal(t, 2, out.Found)
	assert.Equal(t, 2, out.Added)
	assert.Equal(t, 2, out.Total)
	assert.NotEmpty(t, out.ID)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, InlineSource, out.Sources[0].Source)
	assert.Equal(t, 2, <-ch)

	// The scan is recorded as the current page
	s, err := db.GetScan(context.Background(), f.db, out.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Emails, s.Emails)
	assert.Equal(t, 2, s.Added)
}

func TestScan_RescanAddsNothing(t *testing.T) {
	f := newFixture(t)

	f.scanText(t, "amy@corp.io")
	out := f.scanText(t, "AMY@corp.io")

	assert.Equal(t, 1, out.Found)
	assert.Equal(t, 0, out.Added)
	assert.Equal(t, 1, out.Total)
}

func TestScan_EmptyResultIsValid(t *testing.T) {
	f := newFixture(t)

	out := f.scanText(t, "nothing to see here")
	assert.NotNil(t, out.Emails)
	assert.Empty(t, out.Emails)
	assert.Zero(t, out.Total)
}

func TestScan_Files(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	page := writeFile(t, dir, "team.html", `<p>amy@corp.io</p><iframe srcdoc="&lt;p&gt;bob@corp.io&lt;/p&gt;"></iframe>`)
	notes := writeFile(t, dir, "notes.txt", "bob@corp.io carol@corp.io")

	out, err := Scan(context.Background(), f.db, f.sink, f.cfg, ScanInput{Sources: []string{page, notes}})
	require.NoError(t, err)

	assert.Equal(t, []string{"amy@corp.io", "bob@corp.io", "carol@corp.io"}, out.Emails)
	require.Len(t, out.Sources, 2)
	assert.Equal(t, db.ScanSource{Source: page, Found: 2}, out.Sources[0])
	assert.Equal(t, db.ScanSource{Source: notes, Found: 2}, out.Sources[1])
}

func TestScan_PartialFailure(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "amy@corp.io")
	missing := dir + "/missing.txt"

	out, err := Scan(context.Background(), f.db, f.sink, f.cfg, ScanInput{Sources: []string{missing, good}})
	require.NoError(t, err)

	assert.Equal(t, []string{"amy@corp.io"}, out.Emails)
	assert.Contains(t, out.Sources[0].Error, "file not found")
	assert.Empty(t, out.Sources[1].Error)
}

func TestScan_AllSourcesFail(t *testing.T) {
	f := newFixture(t)

	_, err := Scan(context.Background(), f.db, f.sink, f.cfg, ScanInput{Sources: []string{"https://example.com"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedSource))
}

func TestScan_CollectAllSourcesOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()
	first := writeFile(t, dir, "first.txt", "amy@corp.io")
	second := writeFile(t, dir, "second.txt", "bob@corp.io")

	off := false
	_, err := UpdateSettings(ctx, f.db, settings.Patch{CollectAllSources: &off})
	require.NoError(t, err)

	out, err := Scan(ctx, f.db, f.sink, f.cfg, ScanInput{Sources: []string{first, second}})
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@corp.io"}, out.Emails)
	assert.Equal(t, []string{second}, out.Skipped)

	// An explicit override wins over the stored value
	out, err = Scan(ctx, f.db, f.sink, f.cfg, ScanInput{
		Sources:  []string{first, second},
		Settings: &settings.Settings{CollectAllSources: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@corp.io", "bob@corp.io"}, out.Emails)
	assert.Empty(t, out.Skipped)
}

func TestScan_DryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := Scan(ctx, f.db, f.sink, f.cfg, ScanInput{Text: "amy@corp.io", DryRun: true})
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	assert.Empty(t, out.ID)
	assert.Equal(t, []string{"amy@corp.io"}, out.Emails)
	assert.Zero(t, out.Total)

	n, err := db.CountEmails(ctx, f.db)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = db.GetLatestScan(ctx, f.db)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestScan_Stdin(t *testing.T) {
	f := newFixture(t)

	out, err := Scan(context.Background(), f.db, f.sink, f.cfg, ScanInput{
		Sources: []string{"-"},
		Stdin:   strings.NewReader("piped amy@corp.io"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"amy@corp.io"}, out.Emails)
}

func TestScan_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := Scan(context.Background(), f.db, f.sink, f.cfg, ScanInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Scan(context.Background(), f.db, f.sink, f.cfg, ScanInput{Text: "a@b.co", Kind: "docx"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestScan_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, f.db, f.sink, f.cfg, ScanInput{Text: "amy@corp.io"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCancelled))
}
