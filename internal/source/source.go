// Package source turns files (or stdin) into pages of plain-text blocks ready
// for scanning. Each format knows how to split itself into blocks: an HTML
// document and each of its inline frames, one mail message, one PDF page.
package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/hpungsan/mailsift/internal/errors"
)

// Stdin is the path that reads standard input.
const Stdin = "-"

// Kind names a source format.
type Kind string

const (
	KindText     Kind = "text"
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
	KindEML      Kind = "eml"
	KindMbox     Kind = "mbox"
	KindPDF      Kind = "pdf"
)

// Page is one source read as ordered text blocks.
type Page struct {
	Source string   `json:"source"`
	Kind   Kind     `json:"kind"`
	Blocks []string `json:"-"`
}

// blockFunc splits raw bytes into text blocks.
type blockFunc func(data []byte, log zerolog.Logger) ([]string, error)

var parsers = map[Kind]blockFunc{
	KindText:     textBlocks,
	KindHTML:     htmlBlocks,
	KindMarkdown: markdownBlocks,
	KindEML:      emlBlocks,
	KindMbox:     mboxBlocks,
	KindPDF:      pdfBlocks,
}

var extensions = map[string]Kind{
	".html":     KindHTML,
	".htm":      KindHTML,
	".xhtml":    KindHTML,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".eml":      KindEML,
	".mbox":     KindMbox,
	".mbx":      KindMbox,
	".pdf":      KindPDF,
}

// KindFor picks a format from the path's extension. Unknown extensions and
// stdin are plain text.
func KindFor(path string) Kind {
	if k, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return KindText
}

// ParseKind validates a user-supplied format name. Empty means "by extension".
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return "", nil
	}
	if _, ok := parsers[k]; !ok {
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown source format %q", s))
	}
	return k, nil
}

// Reader reads sources with a size cap.
type Reader struct {
	MaxBytes int64
	// Kind forces a format for every source; empty picks by extension.
	Kind  Kind
	Stdin io.Reader
	Log   zerolog.Logger
}

// Read is Reader.Read with os.Stdin and a no-op logger.
func Read(ctx context.Context, path string, maxBytes int64) (*Page, error) {
	r := &Reader{MaxBytes: maxBytes, Stdin: os.Stdin, Log: zerolog.Nop()}
	return r.Read(ctx, path)
}

// Read loads path and splits it into blocks. Remote URLs are refused.
func (r *Reader) Read(ctx context.Context, path string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("read")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.NewInvalidRequest("source path is required")
	}
	if strings.Contains(path, "://") {
		return nil, errors.NewUnsupportedSource(path, "remote sources are not fetched; save the page and scan the file")
	}

	kind := r.Kind
	if kind == "" {
		kind = KindFor(path)
	}

	var data []byte
	var err error
	if path == Stdin {
		data, err = r.readLimited(path, r.Stdin)
	} else {
		data, err = r.readFile(path)
	}
	if err != nil {
		return nil, err
	}

	return r.Parse(path, kind, data)
}

// Parse splits already-loaded data. Blocks are NFKC-normalized; empty blocks
// are dropped.
func (r *Reader) Parse(name string, kind Kind, data []byte) (*Page, error) {
	parse, ok := parsers[kind]
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown source format %q", kind))
	}
	raw, err := parse(data, r.Log)
	if err != nil {
		return nil, errors.NewUnsupportedSource(name, err.Error())
	}

	blocks := make([]string, 0, len(raw))
	for _, b := range raw {
		b = norm.NFKC.String(b)
		if strings.TrimSpace(b) == "" {
			continue
		}
		blocks = append(blocks, b)
	}
	r.Log.Debug().Str("source", name).Str("kind", string(kind)).Int("blocks", len(blocks)).Msg("source read")
	return &Page{Source: name, Kind: kind, Blocks: blocks}, nil
}

// FromText wraps inline text as a one-block page.
func FromText(name, text string) *Page {
	return &Page{Source: name, Kind: KindText, Blocks: []string{norm.NFKC.String(text)}}
}

func (r *Reader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	if info.IsDir() {
		return nil, errors.NewUnsupportedSource(path, "is a directory")
	}
	if r.MaxBytes > 0 && info.Size() > r.MaxBytes {
		return nil, errors.NewSourceTooLarge(path, r.MaxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer f.Close()
	return r.readLimited(path, f)
}

func (r *Reader) readLimited(name string, in io.Reader) ([]byte, error) {
	if in == nil {
		return nil, errors.NewInvalidRequest("no input available for " + name)
	}
	if r.MaxBytes > 0 {
		in = io.LimitReader(in, r.MaxBytes+1)
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if r.MaxBytes > 0 && int64(len(data)) > r.MaxBytes {
		return nil, errors.NewSourceTooLarge(name, r.MaxBytes)
	}
	return data, nil
}

func textBlocks(data []byte, _ zerolog.Logger) ([]string, error) {
	return []string{string(data)}, nil
}
