package source

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// pdfBlocks extracts one block per page. The pdf library panics on some
// malformed files, so every call into it is guarded; a bad page is skipped.
func pdfBlocks(data []byte, log zerolog.Logger) (blocks []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := 0
	func() {
		defer func() { _ = recover() }()
		pages = reader.NumPage()
	}()

	for i := 1; i <= pages; i++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn().Int("page", i).Interface("panic", r).Msg("pdf page skipped")
				}
			}()
			page := reader.Page(i)
			if page.V.IsNull() {
				return
			}
			text, perr := page.GetPlainText(nil)
			if perr != nil {
				log.Warn().Err(perr).Int("page", i).Msg("pdf page skipped")
				return
			}
			blocks = append(blocks, text)
		}()
	}
	return blocks, nil
}
