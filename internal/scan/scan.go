// Package scan runs text through extraction and validation.
package scan

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/extract"
	"github.com/hpungsan/mailsift/internal/validate"
)

// Text returns the accepted addresses of one text block in text order.
// Repeats are kept; the result is not deduplicated. It never returns nil.
func Text(text string) []address.Address {
	out := []address.Address{}
	for candidate := range extract.Candidates(text) {
		if !validate.IsValid(candidate) {
			continue
		}
		a, err := address.Parse(candidate)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Page scans every block of one page concurrently and returns the union,
// deduplicated by canonical address. Block order and in-block order decide which
// occurrence is kept. The only error is ctx ending before all blocks finish.
func Page(ctx context.Context, blocks []string) ([]address.Address, error) {
	results := make([][]address.Address, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	for i, block := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Text(block)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []address.Address
	for _, r := range results {
		all = append(all, r...)
	}
	return address.Dedupe(all), nil
}
