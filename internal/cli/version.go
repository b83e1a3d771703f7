package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the recordctl release.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/recordkit"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the recordctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "recordctl v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
