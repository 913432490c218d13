package ops

import (
	"context"

	"github.com/hpungsan/mailsift/internal/collect"
)

// ClearOutput contains the result of the Clear operation.
type ClearOutput struct {
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// Clear empties the collected set and broadcasts the zero total.
// Scan history is kept.
func Clear(ctx context.Context, sink *collect.Sink) (*ClearOutput, error) {
	before, err := sink.Total(ctx)
	if err != nil {
		return nil, err
	}
	if err := sink.Clear(ctx); err != nil {
		return nil, err
	}
	return &ClearOutput{Removed: before, Total: 0}, nil
}
