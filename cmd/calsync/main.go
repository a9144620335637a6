package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cyp0633/calsync/davclient"
	"github.com/cyp0633/calsync/internal/config"
	"github.com/cyp0633/calsync/internal/storage"
	"github.com/cyp0633/calsync/internal/workflow"
	"github.com/urfave/cli/v2"
)

const defaultCleanupDays = 7

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("calsync failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "calsync",
		Usage: "Sync CalDAV calendars to local ICS files and merge them into subscription feeds.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".env", Usage: "Path to the account configuration file."},
			&cli.StringFlag{Name: "data-dir", Usage: "Storage root. Overrides DATA_DIR."},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging."},
		},
		Commands: []*cli.Command{
			listCommand(),
			syncCommand(),
			mergeCommand(),
			cleanupCommand(),
			workflowCommand(),
			watchCommand(),
		},
	}
}

// setup loads the configuration and builds the logger and manager shared
// by every command.
func setup(c *cli.Context) (*workflow.Manager, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil, nil, fmt.Errorf("%w (use --config to point at your .env)", err)
		}
		return nil, nil, nil, err
	}

	level := cfg.LogLevel
	if c.Bool("verbose") {
		level = "debug"
	}
	logger := setupLogger(level)
	slog.SetDefault(logger)

	root := cfg.DataDir
	if c.IsSet("data-dir") {
		root = c.String("data-dir")
	}
	m, err := workflow.NewManager(cfg, storage.DefaultPaths(root), logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return m, cfg, logger, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List configured accounts.",
		Action: func(c *cli.Context) error {
			m, _, _, err := setup(c)
			if err != nil {
				return err
			}
			return m.ListAccounts(c.App.Writer)
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Download events for all accounts, one kind, or one named account.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Usage: "Only sync the account of this kind (" + kindList() + ")."},
			&cli.StringFlag{Name: "name", Usage: "Only sync the account with this name."},
		},
		Action: func(c *cli.Context) error {
			m, _, logger, err := setup(c)
			if err != nil {
				return err
			}
			switch {
			case c.IsSet("kind") && c.IsSet("name"):
				return fmt.Errorf("--kind and --name are mutually exclusive")
			case c.IsSet("kind"):
				kind := davclient.Kind(strings.ToLower(c.String("kind")))
				n, err := m.SyncByKind(c.Context, kind)
				if err != nil {
					return err
				}
				logger.Info("sync complete", "kind", kind, "events", n)
			case c.IsSet("name"):
				n, err := m.SyncByName(c.Context, c.String("name"))
				if err != nil {
					return err
				}
				logger.Info("sync complete", "name", c.String("name"), "events", n)
			default:
				synced, err := m.SyncAll(c.Context)
				if err != nil {
					return err
				}
				if synced == 0 {
					return workflow.ErrNothingSynced
				}
			}
			return nil
		},
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge downloaded events into the public calendar, or one kind into the merged directory.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Usage: "Merge only this kind (" + kindList() + ")."},
		},
		Action: func(c *cli.Context) error {
			m, _, logger, err := setup(c)
			if err != nil {
				return err
			}
			var out string
			if c.IsSet("kind") {
				out, err = m.MergeByKind(davclient.Kind(c.String("kind")))
			} else {
				out, err = m.MergeAll()
			}
			if err != nil {
				return err
			}
			logger.Info("merged calendar written", "path", out)
			return nil
		},
	}
}

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Remove stale diagnostic files and event directories.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: defaultCleanupDays, Usage: "Remove items older than this many days."},
		},
		Action: func(c *cli.Context) error {
			m, _, _, err := setup(c)
			if err != nil {
				return err
			}
			_, err = m.Cleanup(c.Int("days"))
			return err
		},
	}
}

func workflowCommand() *cli.Command {
	return &cli.Command{
		Name:  "workflow",
		Usage: "Sync all accounts, merge, publish and clean up.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: defaultCleanupDays, Usage: "Cleanup age threshold in days."},
		},
		Action: func(c *cli.Context) error {
			m, _, _, err := setup(c)
			if err != nil {
				return err
			}
			return m.Run(c.Context, c.Int("days"))
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run the workflow on a schedule until interrupted.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schedule", Usage: "Cron spec, e.g. '@every 30m' or '0 * * * *'. Overrides SYNC_SCHEDULE."},
			&cli.IntFlag{Name: "days", Value: defaultCleanupDays, Usage: "Cleanup age threshold in days."},
		},
		Action: func(c *cli.Context) error {
			m, cfg, _, err := setup(c)
			if err != nil {
				return err
			}
			spec := cfg.SyncSchedule
			if c.IsSet("schedule") {
				spec = c.String("schedule")
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return m.Watch(ctx, spec, c.Int("days"))
		},
	}
}

func kindList() string {
	var names []string
	for _, k := range davclient.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
