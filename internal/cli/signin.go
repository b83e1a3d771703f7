package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/recordkit/internal/session"
	"github.com/mesh-intelligence/recordkit/pkg/types"
)

func newSignInCmd(a *app) *cobra.Command {
	var email, password, next string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Check a user's email and password",
		Long: `Signin validates the SignIn form and authenticates it against the stored
users. An unknown email and a wrong password fail the same way.

With --next, signin reports where the caller goes afterwards: the next
path once signed in, or the sign-in route when authentication fails and
next is not itself a sign-in route.

Example:
  recordctl signin --email john@example.com --password secret --next /users`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			f, err := ws.registry.NewSignIn(email, password)
			if err != nil {
				return err
			}
			u, err := ws.registry.Authenticate(ctx, f)
			if errors.Is(err, types.ErrAuthenticationFailed) {
				for _, msg := range f.Errors().FullMessages() {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				if next != "" && session.RequiresSignIn(ctx, next) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Redirect to %s\n", session.SignInPath)
				}
				return err
			}
			if err != nil {
				return err
			}

			ctx = session.WithUser(ctx, u)
			current, _ := session.User(ctx)
			if !a.flags.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", current.ID())
				if next != "" && !session.RequiresSignIn(ctx, next) {
					fmt.Fprintf(cmd.OutOrStdout(), "Continue to %s\n", next)
				}
				return nil
			}
			return a.printRecord(cmd.OutOrStdout(), current)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&next, "next", "", "path to continue to after signing in")
	return cmd
}
