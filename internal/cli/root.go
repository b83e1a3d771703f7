// Package cli implements the recordctl command-line interface over the
// User model and the SignIn form.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/recordkit/internal/paths"
	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by one invocation of the root command.
type app struct {
	flags rootFlags
	cfg   *viper.Viper
}

// NewRootCmd creates the top-level "recordctl" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "recordctl",
		Short:   "Manage users stored through recordkit",
		Long:    "recordctl creates, queries and authenticates user records\nin a SQLite or PostgreSQL store.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return sysError(fmt.Errorf("resolve config dir: %w", err))
			}
			a.flags.configDir = configDir
			cfg, err := loadConfig(configDir)
			if err != nil {
				return sysError(err)
			}
			if err := cfg.BindPFlag(cfgKeyLogLevel, cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
				return sysError(err)
			}
			a.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.recordkit-db)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newUsersCmd(a))
	root.AddCommand(newSignInCmd(a))
	root.AddCommand(newExportCmd(a))

	return root
}

// Execute runs the root command with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	reportError(stderr, err)
	return exitCode(err)
}

// systemError marks failures of the environment (config, storage) rather
// than of the user's input.
type systemError struct{ err error }

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &systemError{err: err}
}

// exitCode maps an error to exitUserError or exitSysError.
func exitCode(err error) int {
	var se *systemError
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrValidationFailed),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrAuthenticationFailed):
		return exitUserError
	case errors.As(err, &se):
		return exitSysError
	default:
		return exitUserError
	}
}
