package address

import (
	"fmt"
	"strings"
)

// Filter presets for the provider-specific export buttons.
const (
	FilterAll   = "all"
	FilterGmail = "gmail"
	FilterYahoo = "yahoo"
	FilterOther = "other"
)

const (
	gmailSuffix = "@gmail.com"
	yahooSuffix = "@yahoo.com"
)

// Filter selects addresses by domain. The zero value matches everything.
type Filter struct {
	Preset string // "", all, gmail, yahoo, other
	Suffix string // domain suffix, e.g. "example.org" or "@example.org"
}

// ParseFilter interprets a user-supplied filter: a preset name, or anything else
// as a domain suffix.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", FilterAll:
		return Filter{}, nil
	case FilterGmail, FilterYahoo, FilterOther:
		return Filter{Preset: s}, nil
	}
	if strings.ContainsAny(s, " \t/\\") {
		return Filter{}, fmt.Errorf("invalid domain filter %q", s)
	}
	return Filter{Suffix: s}, nil
}

// Match reports whether a passes the filter.
func (f Filter) Match(a Address) bool {
	full := a.String()
	switch f.Preset {
	case FilterGmail:
		return strings.HasSuffix(full, gmailSuffix)
	case FilterYahoo:
		return strings.HasSuffix(full, yahooSuffix)
	case FilterOther:
		return !strings.HasSuffix(full, gmailSuffix) && !strings.HasSuffix(full, yahooSuffix)
	}
	if f.Suffix == "" {
		return true
	}
	if strings.HasPrefix(f.Suffix, "@") {
		return strings.HasSuffix(full, f.Suffix)
	}
	// A bare suffix matches the domain itself or any subdomain of it.
	suffix := strings.TrimPrefix(f.Suffix, ".")
	return a.Domain == suffix || strings.HasSuffix(a.Domain, "."+suffix)
}

// Name is a short label for file names and page titles.
func (f Filter) Name() string {
	switch {
	case f.Preset != "":
		return f.Preset
	case f.Suffix != "":
		return strings.TrimPrefix(f.Suffix, "@")
	default:
		return FilterAll
	}
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Preset == "" && f.Suffix == ""
}

// Apply returns the addresses that match f. It never returns nil.
func (f Filter) Apply(addrs []Address) []Address {
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
