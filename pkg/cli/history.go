package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/history"
	"github.com/devicelab-dev/actionrunner/pkg/report"
)

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "List past runs",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of runs to list",
			Value: 20,
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "Only list runs of this profile",
		},
	},
	Subcommands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "Print the results of one run",
			ArgsUsage: "<run-id|report-dir>",
			Action:    showRun,
		},
		{
			Name:  "prune",
			Usage: "Delete runs older than a duration",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "older-than",
					Usage: "Age cutoff (e.g. 720h)",
					Value: 30 * 24 * time.Hour,
				},
			},
			Action: pruneRuns,
		},
	},
	Action: listRuns,
}

func openHistory(c *cli.Context) (*history.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	path := cfg.HistoryPath()
	if path == "" {
		return nil, fmt.Errorf("history is disabled in the config")
	}
	return history.Open(path)
}

func listRuns(c *cli.Context) error {
	db, err := openHistory(c)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.List(c.Context, history.Filter{Profile: c.String("profile"), Limit: c.Int("limit")})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.App.Writer, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tPROFILE\tTARGET\tSTATUS\tACTIONS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Profile, r.Target,
			r.Status, r.Succeeded, r.Planned, report.FormatDuration(r.Duration))
	}
	return tw.Flush()
}

func showRun(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one run ID or report directory")
	}
	arg := c.Args().First()

	// A report directory on disk wins over a history lookup.
	if _, err := os.Stat(arg); err == nil {
		r, err := report.Read(arg)
		if err != nil {
			return err
		}
		printResults(c, r.Results)
		report.PrintSummary(c.App.Writer, r)
		return nil
	}

	db, err := openHistory(c)
	if err != nil {
		return err
	}
	defer db.Close()

	run, results, err := db.Get(c.Context, arg)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run %q in history", arg)
	}
	printResults(c, results)
	fmt.Fprintf(c.App.Writer, "\n%s %s on %s: %s (%d/%d succeeded, %s)\n",
		run.ID, run.Profile, run.Target, run.Status, run.Succeeded, run.Planned, report.FormatDuration(run.Duration))
	if run.Error != "" {
		fmt.Fprintf(c.App.Writer, "%s\n", run.Error)
	}
	return nil
}

func printResults(c *cli.Context, results []core.ActionResult) {
	for i := range results {
		fmt.Fprintln(c.App.Writer, report.ActionLine(&results[i]))
	}
}

func pruneRuns(c *cli.Context) error {
	db, err := openHistory(c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Prune(c.Context, time.Now().Add(-c.Duration("older-than")))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d run(s)\n", n)
	return nil
}
