package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/recordkit/internal/ctxlog"
	"github.com/mesh-intelligence/recordkit/internal/models"
	"github.com/mesh-intelligence/recordkit/pkg/sqlstore"
)

// workspace is an attached store with the application models bound to it.
type workspace struct {
	backend  *sqlstore.Backend
	registry *models.Registry
}

// close detaches the backend, folding a detach failure into err.
func (w *workspace) close(err *error) {
	if derr := w.backend.Detach(); derr != nil {
		*err = multierr.Append(*err, sysError(fmt.Errorf("detach store: %w", derr)))
	}
}

// logger builds the logger selected by log_level and log_format.
func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	return ctxlog.New(a.cfg.GetString(cfgKeyLogLevel), a.cfg.GetString(cfgKeyLogFormat), cmd.ErrOrStderr())
}

// open attaches the configured store, ensures the model tables exist and
// returns a context carrying the command logger. The caller must defer
// workspace.close.
func (a *app) open(cmd *cobra.Command) (context.Context, *workspace, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ctxlog.WithLogger(ctx, a.logger(cmd))

	config, err := a.storeConfig()
	if err != nil {
		return nil, nil, sysError(err)
	}
	backend, err := sqlstore.Open(config)
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("attach store: %w", err))
	}
	ws := &workspace{backend: backend}

	registry, err := models.New(backend, a.cfg.GetInt(cfgKeyBcryptCost))
	if err == nil {
		err = registry.EnsureTables(ctx)
	}
	if err != nil {
		return nil, nil, sysError(multierr.Append(err, backend.Detach()))
	}
	ws.registry = registry

	ctxlog.FromContext(ctx).Debug("store attached", "backend", config.Backend, "data_dir", config.DataDir)
	return ctx, ws, nil
}
