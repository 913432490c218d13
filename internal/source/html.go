package source

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxFrameDepth bounds srcdoc frames nested inside srcdoc frames.
const maxFrameDepth = 4

// htmlBlocks renders the document body as one block and every srcdoc frame
// (recursively) as its own block, document order.
func htmlBlocks(data []byte, log zerolog.Logger) ([]string, error) {
	var blocks []string
	walkDocument(data, 0, log, &blocks)
	return blocks, nil
}

func walkDocument(data []byte, depth int, log zerolog.Logger, blocks *[]string) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		// Frames are best effort; an unreadable one is skipped.
		log.Warn().Err(err).Int("depth", depth).Msg("unreadable frame markup skipped")
		return
	}

	root := findFirst(doc, atom.Body)
	if root == nil {
		root = doc
	}

	var b strings.Builder
	var frames [][]byte
	renderText(&b, root, &frames)
	*blocks = append(*blocks, collapseBlankLines(b.String()))

	for _, frame := range frames {
		if depth+1 > maxFrameDepth {
			log.Warn().Int("depth", depth+1).Msg("frame nesting too deep; skipped")
			continue
		}
		walkDocument(frame, depth+1, log, blocks)
	}
}

// htmlText renders markup to text without frame handling, for mail bodies and
// rendered markdown.
func htmlText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	var b strings.Builder
	var frames [][]byte
	renderText(&b, doc, &frames)
	return collapseBlankLines(b.String())
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// renderText approximates what a browser shows: hidden elements are skipped,
// block elements and table cells are separated so adjacent text never glues.
func renderText(b *strings.Builder, n *html.Node, frames *[][]byte) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
			return
		case atom.Iframe, atom.Frame:
			for _, attr := range n.Attr {
				if strings.EqualFold(attr.Key, "srcdoc") && strings.TrimSpace(attr.Val) != "" {
					*frames = append(*frames, []byte(attr.Val))
				}
			}
			return
		case atom.Br:
			b.WriteString("\n")
		case atom.Td, atom.Th:
			b.WriteString("\t")
		}
		if isBlock(n.DataAtom) {
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c, frames)
	}

	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteString("\n")
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer,
		atom.Nav, atom.Aside, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Dl, atom.Dt, atom.Dd, atom.Table, atom.Tr,
		atom.Blockquote, atom.Pre, atom.Hr, atom.Address, atom.Form, atom.Fieldset,
		atom.Figure, atom.Figcaption:
		return true
	}
	return false
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
