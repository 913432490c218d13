package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Filter string // optional preset (gmail, yahoo, other) or domain suffix
	Limit  int    // default: 50, max: 1000
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []db.Email `json:"items"`
	Filter     string     `json:"filter"`
	Pagination Pagination `json:"pagination"`
	Sort       string     `json:"sort"`
}

// List retrieves the all-time collected list, oldest sighting first.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	f, err := parseFilter(input.Filter)
	if err != nil {
		return nil, err
	}

	rows, err := db.ListEmails(ctx, database)
	if err != nil {
		return nil, err
	}

	matched := make([]db.Email, 0, len(rows))
	for _, r := range rows {
		if f.Match(address.Address{Local: r.Local, Domain: r.Domain}) {
			matched = append(matched, r)
		}
	}

	items, page := paginate(matched, input.Limit, input.Offset, DefaultListLimit, MaxListLimit)
	return &ListOutput{
		Items:      items,
		Filter:     f.Name(),
		Pagination: page,
		Sort:       "first_seen_asc",
	}, nil
}
