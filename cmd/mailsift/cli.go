package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/mailsift/internal/collect"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/errors"
	"github.com/hpungsan/mailsift/internal/logx"
	"github.com/hpungsan/mailsift/internal/ops"
	"github.com/hpungsan/mailsift/internal/report"
	"github.com/hpungsan/mailsift/internal/settings"
	"github.com/hpungsan/mailsift/internal/watch"
	"github.com/hpungsan/mailsift/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, sink *collect.Sink) *cli.App {
	app := &cli.App{
		Name:    "mailsift",
		Usage:   "Local email address collector",
		Version: Version,
		Commands: []*cli.Command{
			scanCmd(db, cfg, sink),
			checkCmd(),
			listCmd(db),
			latestCmd(db),
			historyCmd(db),
			statsCmd(db),
			copyCmd(db),
			exportCmd(db, cfg),
			clearCmd(sink),
			settingsCmd(db),
			watchCmd(db, cfg, sink),
			serveCmd(db, cfg, sink),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

var filterFlag = &cli.StringFlag{
	Name:    "filter",
	Aliases: []string{"f"},
	Usage:   "Domain filter: gmail, yahoo, other, or a domain suffix",
}

var scopeFlag = &cli.StringFlag{
	Name:  "scope",
	Value: "all",
	Usage: "all|current",
}

// scanCmd creates the scan command.
func scanCmd(db *sql.DB, cfg *config.Config, sink *collect.Sink) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan files, inline text or stdin (-) and collect new addresses",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Inline text, scanned first"},
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Force a format: text|html|markdown|eml|mbox|pdf"},
			&cli.BoolFlag{Name: "collect-all-sources", Usage: "Override the stored setting for this run"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Extract without collecting"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ScanInput{
				Sources: c.Args().Slice(),
				Text:    c.String("text"),
				Kind:    c.String("kind"),
				DryRun:  c.Bool("dry-run"),
				Stdin:   os.Stdin,
			}

			if c.IsSet("collect-all-sources") {
				stored, err := settings.Load(c.Context, db)
				if err != nil {
					return outputError(err)
				}
				stored.CollectAllSources = c.Bool("collect-all-sources")
				input.Settings = &stored
			}

			ctx := logx.Component("scan").WithContext(c.Context)
			output, err := ops.Scan(ctx, db, sink, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// checkCmd creates the check command.
func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Explain which candidates in the text are accepted and why others are not",
		ArgsUsage: "<text...>",
		Action: func(c *cli.Context) error {
			output, err := ops.Check(ops.CheckInput{Text: strings.Join(c.Args().Slice(), " ")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List collected addresses, oldest sighting first",
		Flags: []cli.Flag{
			filterFlag,
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, ops.ListInput{
				Filter: c.String("filter"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Show the most recent scan and its addresses",
		Flags: []cli.Flag{filterFlag},
		Action: func(c *cli.Context) error {
			output, err := ops.Latest(c.Context, db, ops.LatestInput{Filter: c.String("filter")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past scans, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, db, ops.HistoryInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Count collected addresses by provider and domain",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top", Value: 20, Usage: "Number of domains to show"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, db, ops.StatsInput{Top: c.Int("top")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// copyCmd prints a list as plain text, one address per line.
func copyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "copy",
		Usage: "Print a list as plain text, ready to paste",
		Flags: []cli.Flag{scopeFlag, filterFlag},
		Action: func(c *cli.Context) error {
			emails, err := ops.Emails(c.Context, db, c.String("scope"), c.String("filter"))
			if err != nil {
				return outputError(err)
			}
			if len(emails) == 0 {
				return nil
			}
			_, err = fmt.Fprintln(os.Stdout, report.JoinText(emails))
			return err
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a list to a .txt, .csv or .pdf file",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "txt|csv|pdf (default: from path, else txt)"},
			scopeFlag,
			filterFlag,
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, ops.ExportInput{
				Path:   c.Args().First(),
				Format: c.String("format"),
				Scope:  c.String("scope"),
				Filter: c.String("filter"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(sink *collect.Sink) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every collected address (scan history is kept)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "confirm", Usage: "Required"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("confirm") {
				return outputError(errors.NewInvalidRequest("clear removes every collected address; pass --confirm"))
			}
			output, err := ops.Clear(c.Context, sink)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// settingsCmd creates the settings command and its get/set subcommands.
func settingsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change scan settings",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show the stored settings",
				Action: func(c *cli.Context) error {
					output, err := ops.GetSettings(c.Context, db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "set",
				Usage: "Change settings; omitted flags are left unchanged",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "collect-all-sources", Usage: "Scan every given source instead of only the first"},
					&cli.BoolFlag{Name: "auto-scan", Usage: "Rescan periodically while serve is running"},
				},
				Action: func(c *cli.Context) error {
					var patch settings.Patch
					if c.IsSet("collect-all-sources") {
						v := c.Bool("collect-all-sources")
						patch.CollectAllSources = &v
					}
					if c.IsSet("auto-scan") {
						v := c.Bool("auto-scan")
						patch.AutoScan = &v
					}
					output, err := ops.UpdateSettings(c.Context, db, patch)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// watchCmd rescans paths in the foreground until interrupted.
func watchCmd(db *sql.DB, cfg *config.Config, sink *collect.Sink) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Rescan paths at the configured interval until interrupted",
		ArgsUsage: "<path...>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Usage: "Override scan_interval_seconds"},
			&cli.DurationFlag{Name: "for", Usage: "Stop after this long (default: until interrupted)"},
		},
		Action: func(c *cli.Context) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				return outputError(errors.NewInvalidRequest("watch needs at least one path"))
			}
			for _, p := range paths {
				if p == "-" {
					return outputError(errors.NewInvalidRequest("watch cannot rescan stdin"))
				}
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if d := c.Duration("for"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			log := logx.Component("watch")
			run := func(ctx context.Context) error {
				output, err := ops.Scan(log.WithContext(ctx), db, sink, cfg, ops.ScanInput{Sources: paths})
				if err != nil {
					return err
				}
				return outputJSON(output)
			}

			s := watch.FromConfig(cfg, run, log)
			if d := c.Duration("interval"); d > 0 {
				s.Interval = d
			}
			s.Immediate = true
			s.Start(ctx)
			s.Wait()
			return nil
		},
	}
}

// serveCmd runs the web UI.
func serveCmd(db *sql.DB, cfg *config.Config, sink *collect.Sink) *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Start the web UI; paths given here are rescanned while auto_scan is on",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8420, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var scheduler *watch.Scheduler
			if paths := c.Args().Slice(); len(paths) > 0 {
				log := logx.Component("watch")
				scheduler = watch.FromConfig(cfg, watch.Scanner(db, sink, cfg, paths, nil), log)

				stored, err := settings.Load(ctx, db)
				if err != nil {
					return outputError(err)
				}
				scheduler.Set(ctx, stored.AutoScan)
				defer scheduler.Stop()
			}

			srv, err := web.NewServer(db, cfg, sink, web.Options{
				Version:     Version,
				Bind:        c.String("bind"),
				Port:        c.Int("port"),
				Scheduler:   scheduler,
				BaseContext: ctx,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(ctx, srv); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// outputJSON writes JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.SiftError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
