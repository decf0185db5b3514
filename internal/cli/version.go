package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/buildinfo"
)

// versionCommand creates the version command.
func (c *CLI) versionCommand() *cobra.Command {
	var (
		manifest bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !manifest {
				_, err := fmt.Fprintln(c.Out, buildinfo.String())
				return err
			}
			m := buildinfo.PackageManifest()
			if !asJSON {
				_, err := fmt.Fprint(c.Out, m.String())
				return err
			}
			data, err := json.MarshalIndent(struct {
				buildinfo.Manifest
				Requirements []buildinfo.Requirement `json:"requirements"`
			}{m, buildinfo.Requirements()}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.Out, string(data))
			return err
		},
	}

	cmd.Flags().BoolVar(&manifest, "manifest", false, "print the package manifest")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the manifest as JSON (with --manifest)")

	return cmd
}
