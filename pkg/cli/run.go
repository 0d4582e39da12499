package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/actionrunner/pkg/config"
	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/executor"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/history"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
	"github.com/devicelab-dev/actionrunner/pkg/report"
	"github.com/devicelab-dev/actionrunner/pkg/validator"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run an action profile on a device",
	ArgsUsage: "[profile]",
	Description: `Run a built-in profile (see "actionrunner profiles") or a profile file.

The run stops at the first required action that fails; optional failures are
recorded and the run continues. Exit status is 1 when the run halted or was
interrupted.

Reports are written to <output>/<run-id>/report.json.

Examples:
  actionrunner run --profile reddit
  actionrunner run ./flows/custom.yaml -e MESSAGE="hello there"
  actionrunner run --profile twitter --continue-on-failure`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Built-in profile name or profile file",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Variables for ${...} in input text (KEY=VALUE)",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Report directory (default: <home>/reports)",
		},
		&cli.IntFlag{
			Name:  "poll-interval",
			Usage: "Wait polling period in ms",
		},
		&cli.BoolFlag{
			Name:  "continue-on-failure",
			Usage: "Treat every action as optional",
		},
		&cli.BoolFlag{
			Name:  "snapshot-on-failure",
			Usage: "Capture the UI tree when an action fails",
		},
		&cli.BoolFlag{
			Name:  "skip-preflight",
			Usage: "Skip the installed-app check and permission grants",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the run in the history database",
		},
	},
	Action: runProfile,
}

// applyRunFlags overlays run flags on cfg.
func applyRunFlags(c *cli.Context, cfg *config.Config) error {
	o := config.Overrides{
		Output:            c.String("output"),
		ContinueOnFailure: c.Bool("continue-on-failure"),
		SnapshotOnFailure: c.Bool("snapshot-on-failure"),
		SkipPreflight:     c.Bool("skip-preflight"),
		NoHistory:         c.Bool("no-history"),
		Env:               parseEnvVars(c.StringSlice("env")),
	}
	if c.IsSet("poll-interval") {
		o.PollIntervalMs = c.Int("poll-interval")
	}
	return cfg.Merge(o)
}

func profileArg(c *cli.Context) (string, error) {
	name := c.String("profile")
	if name == "" {
		name = c.Args().First()
	}
	if name == "" {
		return "", fmt.Errorf("a profile is required: --profile <name|file> (built-in: %v)", flow.BuiltinNames())
	}
	return name, nil
}

func runProfile(c *cli.Context) error {
	name, err := profileArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := applyRunFlags(c, cfg); err != nil {
		return err
	}
	if err := setupLogging(c, cfg); err != nil {
		return err
	}
	defer logger.Close()

	f, err := flow.Resolve(name)
	if err != nil {
		return err
	}
	res := validator.New().ValidateFlow(f)
	for _, w := range res.Warnings {
		logger.Warn("%s", w)
	}
	if !res.IsValid() {
		for _, e := range res.Errors {
			fmt.Fprintf(c.App.ErrWriter, "  %s✗%s %v\n", color(colorRed), color(colorReset), e)
		}
		return cli.Exit(fmt.Sprintf("profile %s is invalid", f.Name()), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := execute(ctx, c, cfg, f)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	store(c, cfg, r)
	report.PrintSummary(c.App.Writer, r)

	if !r.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

// execute acquires a session and runs f on it.
func execute(ctx context.Context, c *cli.Context, cfg *config.Config, f *flow.Flow) (*core.RunReport, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	acq, err := provider.Acquire(ctx, cfg.Device, f)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	out := progress{w: c.App.Writer}
	out.header(f, acq.Session.Target())

	runner := executor.New(executor.RunnerConfig{
		Excluded:         cfg.ExcludedUsernames,
		Variables:        cfg.Env,
		Platform:         acq.Platform,
		OnActionStart:    out.onActionStart,
		OnActionComplete: out.onActionComplete,
	})
	return runner.Run(ctx, acq.Session, f, executor.Policy{
		PollInterval:      cfg.PollInterval(),
		ContinueOnFailure: cfg.ContinueOnFailure,
		SnapshotOnFailure: cfg.SnapshotOnFailure,
	})
}

// store writes the report files and the history row. Failures are logged;
// the run outcome stands.
func store(c *cli.Context, cfg *config.Config, r *core.RunReport) {
	runDir, err := report.Write(cfg.ReportDir(), r)
	if err != nil {
		logger.Error("write report: %v", err)
		fmt.Fprintf(c.App.ErrWriter, "Warning: report not written: %v\n", err)
	} else {
		fmt.Fprintf(c.App.Writer, "\n  Report: %s\n", runDir)
		if page, err := report.GenerateHTML(runDir, report.HTMLConfig{}); err != nil {
			logger.Error("write html report: %v", err)
		} else {
			fmt.Fprintf(c.App.Writer, "  HTML:   %s\n", page)
		}
	}

	path := cfg.HistoryPath()
	if path == "" {
		return
	}
	db, err := history.Open(path)
	if err != nil {
		logger.Error("open history: %v", err)
		return
	}
	defer db.Close()
	// The run context may already be cancelled; history is still recorded.
	if err := db.Save(context.Background(), r); err != nil {
		logger.Error("save history: %v", err)
	}
}
