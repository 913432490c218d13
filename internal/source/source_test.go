package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mailsift/internal/errors"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newReader() *Reader {
	return &Reader{MaxBytes: 1 << 20, Log: zerolog.Nop()}
}

func TestKindFor(t *testing.T) {
	tests := map[string]Kind{
		"page.html":     KindHTML,
		"PAGE.HTM":      KindHTML,
		"notes.md":      KindMarkdown,
		"msg.eml":       KindEML,
		"archive.mbox":  KindMbox,
		"scan.pdf":      KindPDF,
		"list.txt":      KindText,
		"no-extension":  KindText,
		Stdin:           KindText,
		"weird.unknown": KindText,
	}
	for path, want := range tests {
		assert.Equal(t, want, KindFor(path), path)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("HTML")
	require.NoError(t, err)
	assert.Equal(t, KindHTML, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Kind(""), k)

	_, err = ParseKind("docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRead_Text(t *testing.T) {
	path := writeSource(t, "list.txt", "reach jane@example.org\n")

	page, err := newReader().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, page.Source)
	assert.Equal(t, KindText, page.Kind)
	assert.Equal(t, []string{"reach jane@example.org\n"}, page.Blocks)
}

func TestRead_NFKC(t *testing.T) {
	// Fullwidth letters and at sign fold to ASCII
	path := writeSource(t, "wide.txt", "ｊａｎｅ＠example.org")

	page, err := newReader().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.org"}, page.Blocks)
}

func TestRead_HTML(t *testing.T) {
	markup := `<!doctype html>
<html><head><title>t</title><style>.a{}</style></head>
<body>
<script>var hidden = "script@example.org";</script>
<p>Write to <b>amy@corp.io</b></p><div>bob@corp.io</div>
<table><tr><td>carol@corp.io</td><td>dave@corp.io</td></tr></table>
<iframe srcdoc="&lt;p&gt;frame@corp.io&lt;/p&gt;&lt;iframe srcdoc='&amp;lt;p&amp;gt;inner@corp.io&amp;lt;/p&amp;gt;'&gt;&lt;/iframe&gt;"></iframe>
<iframe src="https://elsewhere.example/"></iframe>
</body></html>`
	path := writeSource(t, "page.html", markup)

	page, err := newReader().Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 3)

	main := page.Blocks[0]
	assert.Contains(t, main, "amy@corp.io")
	assert.NotContains(t, main, "script@example.org")
	assert.NotContains(t, main, "frame@corp.io")
	assert.NotContains(t, main, "carol@corp.iodave@corp.io")
	assert.Contains(t, strings.Fields(main), "bob@corp.io")
	assert.Contains(t, strings.Fields(main), "dave@corp.io")

	assert.Equal(t, "frame@corp.io", page.Blocks[1])
	assert.Equal(t, "inner@corp.io", page.Blocks[2])
}

func TestRead_Markdown(t *testing.T) {
	path := writeSource(t, "notes.md", "# Team\n\nMail **amy@corp.io** or <bob@corp.io>.\n")

	page, err := newReader().Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 1)
	fields := strings.Fields(page.Blocks[0])
	assert.Contains(t, fields, "amy@corp.io")
	assert.Contains(t, page.Blocks[0], "bob@corp.io")
	assert.NotContains(t, page.Blocks[0], "**")
}

const sampleMessage = "From: Amy Corp <amy@corp.io>\r\n" +
	"To: bob@corp.io, Carol <carol@corp.io>\r\n" +
	"Subject: hello\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please cc dave@corp.io on replies.\r\n"

func TestRead_EML(t *testing.T) {
	path := writeSource(t, "msg.eml", sampleMessage)

	page, err := newReader().Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 2)
	assert.Equal(t, "amy@corp.io\nbob@corp.io\ncarol@corp.io", page.Blocks[0])
	assert.Contains(t, page.Blocks[1], "dave@corp.io")
}

func TestRead_Mbox(t *testing.T) {
	content := "From amy@corp.io Mon Jan  1 00:00:00 2024\n" +
		strings.ReplaceAll(sampleMessage, "\r\n", "\n") +
		"\n" +
		"From erin@corp.io Mon Jan  1 00:00:00 2024\n" +
		"From: erin@corp.io\n" +
		"Subject: second\n" +
		"\n" +
		"frank@corp.io\n"
	path := writeSource(t, "archive.mbox", content)

	page, err := newReader().Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 2)
	assert.Contains(t, page.Blocks[0], "dave@corp.io")
	assert.Contains(t, page.Blocks[1], "frank@corp.io")
}

func TestRead_MalformedPDF(t *testing.T) {
	path := writeSource(t, "broken.pdf", "not really a pdf")

	_, err := newReader().Read(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedSource))
}

func TestRead_ForcedKind(t *testing.T) {
	path := writeSource(t, "page.txt", "<p>amy@corp.io</p>")

	r := newReader()
	r.Kind = KindHTML
	page, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, KindHTML, page.Kind)
	assert.Equal(t, []string{"amy@corp.io"}, page.Blocks)
}

func TestRead_Stdin(t *testing.T) {
	r := newReader()
	r.Stdin = strings.NewReader("piped amy@corp.io")

	page, err := r.Read(context.Background(), Stdin)
	require.NoError(t, err)
	assert.Equal(t, Stdin, page.Source)
	assert.Equal(t, []string{"piped amy@corp.io"}, page.Blocks)
}

func TestRead_Errors(t *testing.T) {
	big := writeSource(t, "big.txt", strings.Repeat("x", 64))
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{"empty path", "  ", errors.ErrInvalidRequest},
		{"url", "https://example.com/contact", errors.ErrUnsupportedSource},
		{"missing", filepath.Join(dir, "nope.txt"), errors.ErrFileNotFound},
		{"directory", dir, errors.ErrUnsupportedSource},
		{"too large", big, errors.ErrSourceTooLarge},
	}

	r := &Reader{MaxBytes: 16, Log: zerolog.Nop()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Read(context.Background(), tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestRead_StdinTooLarge(t *testing.T) {
	r := &Reader{MaxBytes: 4, Stdin: strings.NewReader("0123456789"), Log: zerolog.Nop()}
	_, err := r.Read(context.Background(), Stdin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceTooLarge))
}

func TestRead_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newReader().Read(ctx, writeSource(t, "a.txt", "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCancelled))
}

func TestFromText(t *testing.T) {
	page := FromText("inline", "amy@corp.io")
	assert.Equal(t, KindText, page.Kind)
	assert.Equal(t, []string{"amy@corp.io"}, page.Blocks)
}
