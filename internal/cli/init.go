package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/recordkit/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize recordctl storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, then create the model tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			configDir := a.flags.configDir
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				return sysError(fmt.Errorf("create config directory: %w", err))
			}

			config, err := a.storeConfig()
			if err != nil {
				return sysError(err)
			}
			written, err := writeConfigIfMissing(paths.ConfigFile(configDir), configFile{
				Backend:    config.Backend,
				DataDir:    config.DataDir,
				DSN:        config.DSN,
				LogLevel:   a.cfg.GetString(cfgKeyLogLevel),
				LogFormat:  a.cfg.GetString(cfgKeyLogFormat),
				BcryptCost: a.cfg.GetInt(cfgKeyBcryptCost),
			})
			if err != nil {
				return sysError(fmt.Errorf("write config: %w", err))
			}

			_, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			out := cmd.OutOrStdout()
			if written {
				fmt.Fprintf(out, "Wrote %s\n", paths.ConfigFile(configDir))
			}
			fmt.Fprintf(out, "Initialized %s store in %s\n", config.Backend, config.DataDir)
			return nil
		},
	}
}
