package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/imaging"
	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/view"
)

func newItemsCmd(app *App) *cobra.Command {
	var tab string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the items of a feed tab",
		Long: strings.TrimSpace(`
List the items of one feed tab. Tabs not available to your role fall back
to your default tab: lost, verified, submitted (guards), received and
claimed (officers and admins).`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				user, err := e.session.Profile(ctx)
				if err != nil {
					return err
				}
				spec := view.ResolveTab(user.Role, tab)

				items, err := e.session.ItemsByStatus(ctx, spec.Status)
				if backend.IsForbidden(err) {
					items = nil
				} else if err != nil {
					return err
				}

				fmt.Fprintln(e.out, styleBold.Render(spec.Label))
				if len(items) == 0 {
					printEmpty(e.out, spec.Empty)
					return nil
				}
				renderTable(e.out, []string{"ID", "Type", "Description", "Location", "When", "Status"}, itemRows(items))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&tab, "tab", "t", "", "Feed tab (default: your role's first tab)")
	return cmd
}

func newReportCmd(app *App) *cobra.Command {
	var (
		itemType, description, location string
		date, clock                     string
		images                          []string
	)

	cmd := &cobra.Command{
		Use:       "report lost|found",
		Short:     "Report a lost item or submit a found one",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{model.ItemStatusLost, model.ItemStatusFound},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if kind != model.ItemStatusLost && kind != model.ItemStatusFound {
				return fmt.Errorf("unknown report kind %q (want lost or found)", kind)
			}

			r := backend.Report{
				Kind:        kind,
				ItemType:    strings.TrimSpace(itemType),
				Description: strings.TrimSpace(description),
				Location:    strings.TrimSpace(location),
				Date:        date,
				Clock:       clock,
			}
			if r.ItemType == "" || r.Description == "" {
				return errors.New("--type and --description are required")
			}
			if kind == model.ItemStatusFound && (r.Location == "" || r.Date == "" || r.Clock == "") {
				return errors.New("found items need --location, --date and --time")
			}
			if r.Date != "" && r.Clock != "" {
				when, err := time.ParseInLocation("2006-01-02T15:04", r.Date+"T"+r.Clock, time.Local)
				if err != nil {
					return fmt.Errorf("invalid date or time: %w", err)
				}
				r.Time = &when
			}
			ups, err := loadImages(images)
			if err != nil {
				return err
			}
			r.Images = ups

			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				if err := e.session.ReportItem(ctx, r); err != nil {
					return err
				}
				if kind == model.ItemStatusLost {
					fmt.Fprintln(e.out, "Lost item reported successfully.")
				} else {
					fmt.Fprintln(e.out, "Found item submitted successfully.")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&itemType, "type", "", "Item type, e.g. Wallet")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&location, "location", "", "Where it was lost or found")
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&clock, "time", "", "Time (HH:MM)")
	cmd.Flags().StringSliceVar(&images, "image", nil, "JPEG or PNG image (repeatable)")
	return cmd
}

// loadImages reads and processes image files the same way browser uploads are.
func loadImages(paths []string) ([]*imaging.Upload, error) {
	if len(paths) > imaging.MaxImages {
		return nil, fmt.Errorf("at most %d images can be attached", imaging.MaxImages)
	}
	ups := make([]*imaging.Upload, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		up, err := imaging.Process(filepath.Base(p), f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		ups = append(ups, up)
	}
	return ups, nil
}

func newSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search TOKEN",
		Short: "Look up a submitted item by its handover token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if !view.ValidToken(token) {
				return errors.New(view.InvalidTokenMessage)
			}
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				if _, err := requireRole(ctx, e, model.RoleSecurityGuard); err != nil {
					return err
				}
				item, err := e.session.ItemByToken(ctx, token)
				if backend.IsUnauthorized(err) {
					return err
				}
				if err != nil || item.Status != model.ItemStatusSubmitted {
					return errors.New(view.NoItemMessage)
				}
				printItem(e.out, item)
				return nil
			})
		},
	}
}

func newReportsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List your reports and their handover tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				tokens, err := e.session.MyItemTokens(ctx)
				if backend.IsNotFound(err) || backend.IsForbidden(err) {
					tokens = nil
				} else if err != nil {
					return err
				}
				if len(tokens) == 0 {
					printEmpty(e.out, "You have not reported any items yet.")
					return nil
				}
				rows := make([][]string, 0, len(tokens))
				for _, t := range tokens {
					rows = append(rows, []string{t.ItemType, t.Status, t.Token, view.RelativeTime(t.Time)})
				}
				renderTable(e.out, []string{"Item", "Status", "Token", "Reported"}, rows)
				return nil
			})
		},
	}
}
