package source

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
	"github.com/rs/zerolog"
)

// Address headers contribute their bare addresses as a block of their own.
var addressHeaders = []string{"From", "To", "Cc", "Reply-To", "Sender"}

// emlBlocks reads one MIME message: header addresses, the text part and the
// rendered HTML part.
func emlBlocks(data []byte, log zerolog.Logger) ([]string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	for _, perr := range env.Errors {
		log.Debug().Str("error", perr.Error()).Msg("message parsed with warnings")
	}
	return messageBlocks(env), nil
}

func messageBlocks(env *enmime.Envelope) []string {
	var blocks []string

	var headers []string
	for _, key := range addressHeaders {
		list, err := env.AddressList(key)
		if err != nil {
			continue
		}
		for _, a := range list {
			headers = append(headers, a.Address)
		}
	}
	if len(headers) > 0 {
		blocks = append(blocks, strings.Join(headers, "\n"))
	}

	if env.Text != "" {
		blocks = append(blocks, env.Text)
	}
	if env.HTML != "" {
		blocks = append(blocks, htmlText(env.HTML))
	}
	return blocks
}

// mboxBlocks reads every message of an mbox file. Each message becomes one
// block; a message that fails to parse is skipped.
func mboxBlocks(data []byte, log zerolog.Logger) ([]string, error) {
	reader := mbox.NewReader(bytes.NewReader(data))

	var blocks []string
	for i := 0; ; i++ {
		msg, err := reader.NextMessage()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("failed to read mbox: %w", err)
			}
			log.Warn().Err(err).Int("message", i).Msg("mbox read stopped early")
			break
		}

		env, err := enmime.ReadEnvelope(msg)
		if err != nil {
			log.Warn().Err(err).Int("message", i).Msg("unparseable message skipped")
			continue
		}
		blocks = append(blocks, strings.Join(messageBlocks(env), "\n\n"))
	}
	return blocks, nil
}
