// Package address holds the accepted email address value and its canonical identity.
package address

import (
	"fmt"
	"strings"
)

// Address is an accepted email address. Both parts are stored lowercase, so two
// Address values are equal exactly when their canonical forms are equal.
type Address struct {
	Local  string
	Domain string
}

// Parse splits s on its first '@' and lowercases both parts.
// It does not apply the heuristic checks; callers validate first.
func Parse(s string) (Address, error) {
	local, domain, ok := strings.Cut(strings.TrimSpace(s), "@")
	if !ok || local == "" || domain == "" {
		return Address{}, fmt.Errorf("not an address: %q", s)
	}
	return Address{
		Local:  strings.ToLower(local),
		Domain: strings.ToLower(domain),
	}, nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests and
// values already read back from the store.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the canonical local@domain form.
func (a Address) String() string {
	return a.Local + "@" + a.Domain
}

// Canonical returns the identity key used for set membership.
func (a Address) Canonical() string {
	return a.String()
}

// Canonical lowercases and trims s without parsing it.
func Canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Dedupe keeps the first occurrence of each canonical address, preserving order.
// It never returns nil.
func Dedupe(addrs []Address) []Address {
	seen := make(map[string]bool, len(addrs))
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		key := a.Canonical()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// Strings renders addresses in their canonical form.
func Strings(addrs []Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
