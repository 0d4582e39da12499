package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/actionrunner/pkg/flow"
)

var profilesCommand = &cli.Command{
	Name:  "profiles",
	Usage: "List built-in profiles",
	Subcommands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "Print a profile's action table",
			ArgsUsage: "<name|file>",
			Action:    showProfile,
		},
	},
	Action: listProfiles,
}

func listProfiles(c *cli.Context) error {
	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAPP\tACTIONS\tDESCRIPTION")
	for _, name := range flow.BuiltinNames() {
		f, err := flow.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", name, f.Config.AppID, len(f.Actions), f.Config.Description)
	}
	return tw.Flush()
}

func showProfile(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one profile name or file")
	}
	f, err := flow.Resolve(c.Args().First())
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s%s%s (%s)\n", color(colorBold), f.Name(), color(colorReset), f.SourcePath)
	if f.Config.AppID != "" {
		fmt.Fprintf(w, "App: %s %s\n", f.Config.AppID, f.Config.AppActivity)
	}
	if f.Config.LaunchSettleMs > 0 {
		fmt.Fprintf(w, "Launch settle: %dms\n", f.Config.LaunchSettleMs)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tACTION\tREQUIRED\tTIMEOUT\tSETTLE\tLOCATOR")
	for i := range f.Actions {
		a := &f.Actions[i]
		required := "yes"
		if a.Optional {
			required = "no"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%dms\t%dms\t%s\n",
			i+1, a.Name(), required, a.TimeoutMs, a.SettleMs, a.Locator.Describe())
	}
	return tw.Flush()
}
