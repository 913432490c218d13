// Package report renders address listings as plain text, CSV or PDF.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Format is an export format, named by its file extension.
type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// CSVHeader is the single column header of CSV exports.
const CSVHeader = "Email"

// ParseFormat accepts a format name or extension ("csv", ".csv", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "txt", "text", "":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q (want txt, csv or pdf)", s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type served for downloads.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Listing is what gets rendered.
type Listing struct {
	Title       string
	Filter      string
	GeneratedAt time.Time
	Emails      []string
}

// Write renders l in format f.
func Write(w io.Writer, f Format, l Listing) error {
	switch f {
	case FormatText:
		return WriteText(w, l.Emails)
	case FormatCSV:
		return WriteCSV(w, l.Emails)
	case FormatPDF:
		return WritePDF(w, l)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// JoinText is the clipboard form: one address per line, no trailing newline.
func JoinText(emails []string) string {
	return strings.Join(emails, "\n")
}

// WriteText writes one address per line.
func WriteText(w io.Writer, emails []string) error {
	for _, e := range emails {
		if _, err := io.WriteString(w, e+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes a single-column CSV with an Email header.
func WriteCSV(w io.Writer, emails []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{CSVHeader}); err != nil {
		return err
	}
	for _, e := range emails {
		if err := cw.Write([]string{e}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF lays the listing out as a titled, numbered A4 document.
func WritePDF(w io.Writer, l Listing) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(l.Title, true)
	pdf.SetCreator("mailsift", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, l.Title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	meta := fmt.Sprintf("%d addresses", len(l.Emails))
	if l.Filter != "" {
		meta += " - filter: " + l.Filter
	}
	if !l.GeneratedAt.IsZero() {
		meta += " - " + l.GeneratedAt.UTC().Format(time.RFC3339)
	}
	pdf.CellFormat(0, 6, meta, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for i, e := range l.Emails {
		pdf.CellFormat(12, 6, fmt.Sprintf("%d.", i+1), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, e, "", 1, "L", false, 0, "")
	}
	if len(l.Emails) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 6, "No addresses.", "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

// FileName builds a download name such as "gmail_emails.csv" or
// "current_page_emails.txt".
func FileName(scope, filter string, f Format) string {
	name := scope
	if filter != "" && filter != "all" {
		name = sanitize(filter)
	}
	return name + "_emails" + f.Ext()
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' || r == '@':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "filtered"
	}
	return strings.Trim(b.String(), "_")
}
