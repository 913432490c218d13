package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/mailsift/internal/db"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Limit  int // default: 20, max: 100
	Offset int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []db.Scan  `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// History lists past scans, newest first, without their address lists.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)
	offset := max(input.Offset, 0)

	scans, total, err := db.ListScans(ctx, database, limit, offset)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		Items: scans,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(scans) < total,
			Total:   total,
		},
	}, nil
}
