package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/actionrunner/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check profiles without running them",
	ArgsUsage: "<profile-file-or-folder-or-name>...",
	Action:    validateProfiles,
}

func validateProfiles(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one profile file, folder or built-in name is required")
	}

	v := validator.New()
	w := c.App.Writer
	invalid := 0
	for _, path := range c.Args().Slice() {
		res := v.Validate(path)
		for _, file := range res.Files {
			fmt.Fprintf(w, "  %s\n", file)
		}
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  %s!%s %s\n", color(colorYellow), color(colorReset), warn)
		}
		for _, err := range res.Errors {
			fmt.Fprintf(w, "  %s✗%s %v\n", color(colorRed), color(colorReset), err)
		}
		invalid += len(res.Errors)
	}

	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d validation error(s)", invalid), 1)
	}
	fmt.Fprintf(w, "%s✓ all profiles valid%s\n", color(colorGreen), color(colorReset))
	return nil
}
