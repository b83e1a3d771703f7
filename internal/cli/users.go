package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/recordkit/pkg/record"
	"github.com/mesh-intelligence/recordkit/pkg/types"
)

func newUsersCmd(a *app) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Create, query, update and delete users",
	}
	users.AddCommand(
		newUsersCreateCmd(a),
		newUsersListCmd(a),
		newUsersFindCmd(a),
		newUsersUpdateCmd(a),
		newUsersDeleteCmd(a),
	)
	return users
}

func newUsersCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <attr=value>...",
		Short: "Create a user",
		Long: `Create validates and saves a new user. Attributes are given as
key=value pairs; password is hashed before it is stored.

Example:
  recordctl users create first_name=John last_name=Doe age=30 email=john@example.com password=secret`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			attrs, err := parseAssignments(args)
			if err != nil {
				return err
			}
			ctx, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			u, err := ws.registry.Users.Create(ctx, attrs)
			if err != nil {
				return err
			}
			return a.printRecord(cmd.OutOrStdout(), u)
		},
	}
}

func newUsersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [attr=value]...",
		Short: "List users matching all filters",
		Long: `List prints users in creation order. Filters are key=value pairs and are
ANDed together; null matches an absent value. No filter lists every user.

Example:
  recordctl users list
  recordctl users list last_name=Doe age=30`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			filter, err := parseAssignments(args)
			if err != nil {
				return err
			}
			ctx, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			var recs []*record.Record
			for u, err := range ws.registry.Users.Where(ctx, filter) {
				if err != nil {
					return err
				}
				recs = append(recs, u)
			}
			return a.printRecords(cmd.OutOrStdout(), recs)
		},
	}
}

func newUsersFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <id> | find <attr=value>...",
		Short: "Find one user by identity key or attributes",
		Long: `Find prints the first user matching the given identity key or key=value
filters, and fails when none matches.

Example:
  recordctl users find 0192f0c4-7e1a-7c3e-9b1a-2f1e4b5c6d7e
  recordctl users find email=john@example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			filter := types.Filter{types.IDColumn: args[0]}
			if len(args) > 1 || strings.Contains(args[0], "=") {
				if filter, err = parseAssignments(args); err != nil {
					return err
				}
			}
			ctx, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			u, err := ws.registry.Users.FindBy(ctx, filter)
			if err != nil {
				return fmt.Errorf("find user: %w", err)
			}
			return a.printRecord(cmd.OutOrStdout(), u)
		},
	}
}

func newUsersUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <attr=value>...",
		Short: "Update attributes of a user",
		Long: `Update assigns the given attributes, validates the user and writes only
the attributes that changed.

Example:
  recordctl users update 0192f0c4-7e1a-7c3e-9b1a-2f1e4b5c6d7e age=31`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			attrs, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			ctx, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			u, err := ws.registry.Users.Find(ctx, args[0])
			if err != nil {
				return fmt.Errorf("user %q: %w", args[0], err)
			}
			if err := u.Update(ctx, attrs); err != nil {
				return err
			}
			return a.printRecord(cmd.OutOrStdout(), u)
		},
	}
}

func newUsersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, ws, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer ws.close(&err)

			u, err := ws.registry.Users.Find(ctx, args[0])
			if err != nil {
				return fmt.Errorf("user %q: %w", args[0], err)
			}
			if err := u.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", u.ID())
			return nil
		},
	}
}
