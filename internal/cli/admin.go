package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/findit/internal/export"
	"github.com/erazemk/findit/internal/model"
)

func newAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage user accounts (admins only)",
	}
	cmd.AddCommand(newAdminUsersCmd(app))
	cmd.AddCommand(newAdminRoleCmd(app))
	cmd.AddCommand(newAdminDeleteCmd(app))
	cmd.AddCommand(newAdminExportCmd(app))
	return cmd
}

// adminUsers lists all users, or those matching email when it is set.
func adminUsers(ctx context.Context, e *env, email string) ([]model.User, error) {
	if email != "" {
		return e.session.SearchUsers(ctx, email)
	}
	return e.session.ListUsers(ctx)
}

func newAdminUsersCmd(app *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				if _, err := requireRole(ctx, e, model.RoleAdmin); err != nil {
					return err
				}
				users, err := adminUsers(ctx, e, email)
				if err != nil {
					return err
				}
				if len(users) == 0 {
					printEmpty(e.out, "No users found.")
					return nil
				}
				rows := make([][]string, 0, len(users))
				for i := range users {
					u := &users[i]
					rows = append(rows, []string{u.ID, u.Name(), u.Email, u.Department, model.RoleName(u.Role)})
				}
				renderTable(e.out, []string{"ID", "Name", "Email", "Department", "Role"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Search by email")
	return cmd
}

func newAdminRoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "role USER_ID ROLE",
		Short: "Change a user's role (user, securityGuard, securityOfficer, admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, role := args[0], args[1]
			if !model.ValidRole(role) {
				return fmt.Errorf("invalid role %q", role)
			}
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				if _, err := requireRole(ctx, e, model.RoleAdmin); err != nil {
					return err
				}
				if err := e.session.UpdateUserRole(ctx, id, role); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Role updated to %s.\n", model.RoleName(role))
				return nil
			})
		},
	}
}

func newAdminDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				me, err := requireRole(ctx, e, model.RoleAdmin)
				if err != nil {
					return err
				}
				if me.ID == args[0] {
					return errors.New("you cannot delete your own account")
				}
				if err := e.session.DeleteUser(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(e.out, "User deleted.")
				return nil
			})
		},
	}
}

func newAdminExportCmd(app *App) *cobra.Command {
	var output, email string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export users to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				if _, err := requireRole(ctx, e, model.RoleAdmin); err != nil {
					return err
				}
				users, err := adminUsers(ctx, e, email)
				if err != nil {
					return err
				}

				f, err := os.Create(output)
				if err != nil {
					return err
				}
				if err := export.WriteUsers(f, users); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Exported %d users to %s\n", len(users), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "users.xlsx", "Output file")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Only export users matching this email")
	return cmd
}
