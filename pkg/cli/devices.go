package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/actionrunner/pkg/logger"
)

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List devices visible to adb",
	Description: `List every device adb reports. Only devices in state "device" can be
used with --device; the first of them is picked when --device is omitted.`,
	Action: listDevices,
}

func listDevices(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := setupLogging(c, cfg); err != nil {
		return err
	}
	defer logger.Close()

	adb, err := newADB(cfg.ADBPath)
	if err != nil {
		return err
	}
	entries, err := adb.ListDevices(c.Context)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.App.Writer, "No devices attached")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tSTATE\tMODEL\tANDROID")
	for _, e := range entries {
		model, release := "-", "-"
		if e.Ready() {
			info := adb.Device(e.Serial).Info(c.Context)
			if info.Model != "" {
				model = info.Model
			}
			if info.Release != "" {
				release = info.Release
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Serial, e.State, model, release)
	}
	return tw.Flush()
}
