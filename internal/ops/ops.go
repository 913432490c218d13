package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/db"
	"github.com/hpungsan/mailsift/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit    = 50
	MaxListLimit        = 1000
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	DefaultStatsTop     = 20
)

// Scopes name which list an export or copy reads from.
const (
	ScopeAll     = "all"
	ScopeCurrent = "current"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// paginate clamps limit/offset and slices items accordingly.
func paginate[T any](items []T, limit, offset, def, maxLimit int) ([]T, Pagination) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = max(offset, 0)

	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)

	page := make([]T, end-start)
	copy(page, items[start:end])
	return page, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

// parseFilter turns user input into an address filter, mapping parse failures
// to INVALID_REQUEST.
func parseFilter(s string) (address.Filter, error) {
	f, err := address.ParseFilter(s)
	if err != nil {
		return address.Filter{}, errors.NewInvalidRequest(err.Error())
	}
	return f, nil
}

// ParseScope validates a scope name; empty means all.
func ParseScope(s string) (string, error) {
	switch s {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeCurrent:
		return ScopeCurrent, nil
	}
	return "", errors.NewInvalidRequest("scope must be \"all\" or \"current\"")
}

// Emails returns the canonical addresses of a scope that pass filter, in
// display order: first sighting for all, page order for current. A current
// scope with no scans yet is empty, not an error.
func Emails(ctx context.Context, database *sql.DB, scope, filter string) ([]string, error) {
	f, err := parseFilter(filter)
	if err != nil {
		return nil, err
	}
	scope, err = ParseScope(scope)
	if err != nil {
		return nil, err
	}

	var all []string
	if scope == ScopeCurrent {
		s, err := db.GetLatestScan(ctx, database)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return []string{}, nil
			}
			return nil, err
		}
		all = s.Emails
	} else {
		rows, err := db.ListEmails(ctx, database)
		if err != nil {
			return nil, err
		}
		all = make([]string, len(rows))
		for i, r := range rows {
			all[i] = r.Address
		}
	}

	return filterStrings(f, all), nil
}

func filterStrings(f address.Filter, emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		a, err := address.Parse(e)
		if err != nil {
			continue
		}
		if f.Match(a) {
			out = append(out, a.Canonical())
		}
	}
	return out
}
