package source

import (
	"bytes"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// markdownBlocks renders markdown to HTML and reads it like a page, so
// autolinks and emphasis markers never glue onto an address.
func markdownBlocks(data []byte, _ zerolog.Logger) ([]string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(data, &buf); err != nil {
		return nil, err
	}
	return []string{htmlText(buf.String())}, nil
}
