package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/recordkit/internal/models"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Export users as JSON Lines",
		Long: `Export writes every user row to <dir>/users.jsonl, replacing the file
atomically. Password digests are left out.

Example:
  recordctl export ./backup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			n, err := ws.backend.Export(ctx, models.UsersTable, args[0], models.PasswordDigest)
			if err != nil {
				return sysError(fmt.Errorf("export: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d %s\n", n, models.UsersTable)
			return nil
		},
	}
}
