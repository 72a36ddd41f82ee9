package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/store"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if password == "" {
				password = envOr("FINDIT_PASSWORD", "")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required (--password, FINDIT_PASSWORD or stdin)")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			database, err := app.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			client, err := app.client(ctx, database)
			if err != nil {
				return err
			}
			bs, user, err := client.Login(ctx, email, password)
			if errors.Is(err, backend.ErrInvalidCredentials) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			key, err := store.GetSessionKey(ctx, database)
			if err != nil {
				return err
			}
			if err := store.DeleteSession(ctx, database, sessionID); err != nil {
				return err
			}
			err = store.CreateSession(ctx, database, key, &store.Session{
				ID:        sessionID,
				UserID:    user.ID,
				Email:     user.Email,
				Cookies:   bs.Cookies(),
				ExpiresAt: time.Now().Add(sessionTTL),
			})
			if err != nil {
				return err
			}
			if err := store.SetSetting(ctx, database, settingBackend, client.BaseURL()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", styleBold.Render(user.Name()), model.RoleName(user.Role))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", envOr("FINDIT_EMAIL", ""), "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (default: FINDIT_PASSWORD, else read from stdin)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.withSession(cmd, func(ctx context.Context, e *env) error {
				if err := e.session.Logout(ctx); err != nil && !backend.IsUnauthorized(err) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: backend logout failed: %v\n", err)
				}
				return store.DeleteSession(ctx, e.db, sessionID)
			})
			if errors.Is(err, errNotLoggedIn) {
				return nil
			}
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			}
			return err
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				user, err := e.session.Profile(ctx)
				if err != nil {
					return err
				}
				printUser(e.out, user)
				return nil
			})
		},
	}
}
