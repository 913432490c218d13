package ops

import (
	"context"
	"database/sql"
	"sort"

	"golang.org/x/net/publicsuffix"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/db"
)

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	Top int // number of domains to return, default: 20
}

// DomainCount is the number of collected addresses under one registrable domain.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// StatsOutput contains the result of the Stats operation.
type StatsOutput struct {
	Total   int           `json:"total"`
	Gmail   int           `json:"gmail"`
	Yahoo   int           `json:"yahoo"`
	Other   int           `json:"other"`
	Domains []DomainCount `json:"domains"`
	Scans   int           `json:"scans"`
}

var (
	gmailFilter = address.Filter{Preset: address.FilterGmail}
	yahooFilter = address.Filter{Preset: address.FilterYahoo}
)

// Stats summarizes the collected set: the badge total, the provider split used
// by the export presets, and the busiest registrable domains (mail.corp.co.uk
// and corp.co.uk count together).
func Stats(ctx context.Context, database *sql.DB, input StatsInput) (*StatsOutput, error) {
	rows, err := db.ListEmails(ctx, database)
	if err != nil {
		return nil, err
	}
	_, scans, err := db.ListScans(ctx, database, 1, 0)
	if err != nil {
		return nil, err
	}

	out := &StatsOutput{Total: len(rows), Scans: scans, Domains: []DomainCount{}}
	counts := make(map[string]int)
	for _, r := range rows {
		a := address.Address{Local: r.Local, Domain: r.Domain}
		switch {
		case gmailFilter.Match(a):
			out.Gmail++
		case yahooFilter.Match(a):
			out.Yahoo++
		default:
			out.Other++
		}
		counts[RegistrableDomain(r.Domain)]++
	}

	for domain, n := range counts {
		out.Domains = append(out.Domains, DomainCount{Domain: domain, Count: n})
	}
	sort.Slice(out.Domains, func(i, j int) bool {
		if out.Domains[i].Count != out.Domains[j].Count {
			return out.Domains[i].Count > out.Domains[j].Count
		}
		return out.Domains[i].Domain < out.Domains[j].Domain
	})

	top := input.Top
	if top <= 0 {
		top = DefaultStatsTop
	}
	if len(out.Domains) > top {
		out.Domains = out.Domains[:top]
	}
	return out, nil
}

// RegistrableDomain returns the eTLD+1 of domain, or domain itself when the
// public suffix list cannot place it.
func RegistrableDomain(domain string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return domain
	}
	return etld1
}
