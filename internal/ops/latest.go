package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/mailsift/internal/db"
	"github.com/hpungsan/mailsift/internal/errors"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Filter string // optional, applied to the scan's address list
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Item *db.Scan `json:"item"` // nil if nothing has been scanned yet
}

// Latest retrieves the most recent scan: the current-page view.
func Latest(ctx context.Context, database *sql.DB, input LatestInput) (*LatestOutput, error) {
	f, err := parseFilter(input.Filter)
	if err != nil {
		return nil, err
	}

	s, err := db.GetLatestScan(ctx, database)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &LatestOutput{Item: nil}, nil
		}
		return nil, err
	}

	if !f.IsZero() {
		s.Emails = filterStrings(f, s.Emails)
	}
	return &LatestOutput{Item: s}, nil
}
