package ops

import (
	"context"
	"database/sql"
	stderrors "errors"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/collect"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/db"
	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/scan"
	"github.com/hpungsan/mailsift/internal/settings"
	"github.com/hpungsan/mailsift/internal/source"
)

// InlineSource names the page built from ScanInput.Text.
const InlineSource = "inline"

// ScanInput contains parameters for the Scan operation.
type ScanInput struct {
	Sources []string // file paths, or "-" for stdin
	Text    string   // optional inline text, scanned as the first source
	Kind    string   // optional format override for every file source

	// Settings overrides the stored settings for this run.
	Settings *settings.Settings
	// DryRun extracts without touching the collected set or scan history.
	DryRun bool

	Stdin io.Reader
}

// ScanOutput contains the result of the Scan operation.
type ScanOutput struct {
	ID        string          `json:"id,omitempty"`
	Emails    []string        `json:"emails"`
	Found     int             `json:"found"`
	Added     int             `json:"added"`
	Total     int             `json:"total"`
	Sources   []db.ScanSource `json:"sources"`
	Skipped   []string        `json:"skipped,omitempty"`
	ScannedAt int64           `json:"scanned_at"`
	DryRun    bool            `json:"dry_run,omitempty"`
}

// Scan reads every source, runs each page through the pipeline, merges the
// batch into the collected set and records the run as the new current page.
//
// With CollectAllSources off only the first source is scanned; the rest are
// listed in Skipped. A source that cannot be read is reported in its Sources
// entry and does not stop the others. When every source fails, the first
// failure is returned.
func Scan(ctx context.Context, database *sql.DB, sink *collect.Sink, cfg *config.Config, input ScanInput) (*ScanOutput, error) {
	if len(input.Sources) == 0 && input.Text == "" {
		return nil, errors.NewInvalidRequest("nothing to scan: give at least one source or text")
	}
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("scan")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	kind, err := source.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}

	current := settings.Default()
	if input.Settings != nil {
		current = *input.Settings
	} else if database != nil {
		if current, err = settings.Load(ctx, database); err != nil {
			return nil, err
		}
	}

	log := zerolog.Ctx(ctx)

	// Inline text is the first (active) source when present.
	type target struct {
		name   string
		inline bool
	}
	var targets []target
	if input.Text != "" {
		targets = append(targets, target{name: InlineSource, inline: true})
	}
	for _, p := range input.Sources {
		targets = append(targets, target{name: p})
	}

	var skipped []string
	if !current.CollectAllSources && len(targets) > 1 {
		for _, t := range targets[1:] {
			skipped = append(skipped, t.name)
		}
		targets = targets[:1]
	}

	reader := &source.Reader{
		MaxBytes: cfg.MaxSourceBytes,
		Kind:     kind,
		Stdin:    input.Stdin,
		Log:      *log,
	}

	results := make([][]address.Address, len(targets))
	summaries := make([]db.ScanSource, len(targets))
	failures := make([]error, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.ScanWorkers, 1))
	for i, t := range targets {
		g.Go(func() error {
			summaries[i].Source = t.name

			var page *source.Page
			if t.inline {
				page = source.FromText(InlineSource, input.Text)
			} else {
				var rerr error
				page, rerr = reader.Read(gctx, t.name)
				if rerr != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					log.Warn().Err(rerr).Str("source", t.name).Msg("source skipped")
					summaries[i].Error = errorMessage(rerr)
					failures[i] = rerr
					return nil
				}
			}

			addrs, serr := scan.Page(gctx, page.Blocks)
			if serr != nil {
				return serr
			}
			results[i] = addrs
			summaries[i].Found = len(addrs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.NewCancelled("scan")
	}

	failed := 0
	for _, f := range failures {
		if f != nil {
			failed++
		}
	}
	if failed == len(targets) {
		return nil, failures[0]
	}

	var all []address.Address
	for _, r := range results {
		all = append(all, r...)
	}
	batch := address.Dedupe(all)
	emails := address.Strings(batch)

	now := time.Now()
	out := &ScanOutput{
		Emails:    emails,
		Found:     len(batch),
		Sources:   summaries,
		Skipped:   skipped,
		ScannedAt: now.Unix(),
		DryRun:    input.DryRun,
	}

	if input.DryRun {
		if sink != nil {
			if out.Total, err = sink.Total(ctx); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	if sink == nil {
		return nil, errors.NewInternal(errNoSink)
	}
	res, err := sink.Collect(ctx, batch)
	if err != nil {
		return nil, err
	}
	out.Added = res.Added
	out.Total = res.Total

	if database != nil {
		out.ID = ulid.Make().String()
		record := &db.Scan{
			ID:        out.ID,
			Sources:   summaries,
			Found:     out.Found,
			Added:     out.Added,
			ScannedAt: out.ScannedAt,
			Emails:    emails,
		}
		if err := db.InsertScan(ctx, database, record); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("scan_id", out.ID).
		Int("sources", len(targets)).
		Int("found", out.Found).
		Int("added", out.Added).
		Int("total", out.Total).
		Msg("scan complete")
	return out, nil
}

var errNoSink = stderrors.New("scan requires a collection sink")

// errorMessage returns the user-facing message of err.
func errorMessage(err error) string {
	var sErr *errors.SiftError
	if stderrors.As(err, &sErr) {
		return sErr.Message
	}
	return err.Error()
}
