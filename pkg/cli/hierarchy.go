package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
	"github.com/devicelab-dev/actionrunner/pkg/uitree"
)

var hierarchyCommand = &cli.Command{
	Name:  "hierarchy",
	Usage: "Print the UI tree of the connected device",
	Description: `Open a session and print the current UI hierarchy (page source XML).
With --profile the profile's app is launched first.

Examples:
  actionrunner hierarchy
  actionrunner hierarchy --compact
  actionrunner hierarchy --profile reddit --out reddit.xml
  actionrunner --device emulator-5554 hierarchy`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Launch this profile's app before dumping",
		},
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "Output labeled elements as CSV",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Write the XML to a file instead of stdout",
		},
	},
	Action: dumpHierarchy,
}

func dumpHierarchy(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := setupLogging(c, cfg); err != nil {
		return err
	}
	defer logger.Close()

	f := &flow.Flow{SourcePath: "hierarchy"}
	if name := c.String("profile"); name != "" {
		if f, err = flow.Resolve(name); err != nil {
			return err
		}
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	acq, err := provider.Acquire(c.Context, cfg.Device, f)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if err := acq.Session.Close(); err != nil {
			logger.Warn("close session: %v", err)
		}
	}()

	tree, err := acq.Session.DumpUITree(c.Context)
	if err != nil {
		return fmt.Errorf("dump UI tree: %w", err)
	}

	if c.Bool("compact") {
		nodes, err := uitree.Parse(tree)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := uitree.WriteCSV(&buf, nodes); err != nil {
			return err
		}
		tree = buf.String()
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, []byte(tree), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "UI tree written to %s\n", out)
		return nil
	}
	fmt.Fprintln(c.App.Writer, tree)
	return nil
}
