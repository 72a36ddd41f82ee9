package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erazemk/findit/internal/backend"
	"github.com/erazemk/findit/internal/view"
)

func newRequestsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests [send|receive]",
		Short: "List claim and return requests",
		Long: strings.TrimSpace(`
List requests you sent (send, the default) or received (receive). Pending
received requests can be answered with "requests accept|reject ID"; your own
pending requests can be withdrawn with "requests cancel ID".`),
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{backend.InboxSend, backend.InboxReceive},
		RunE: func(cmd *cobra.Command, args []string) error {
			tab := view.ResolveRequestTab("")
			if len(args) == 1 {
				tab = view.ResolveRequestTab(args[0])
				if tab.ID != args[0] {
					return fmt.Errorf("unknown request list %q (want send or receive)", args[0])
				}
			}
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				reqs, err := e.session.Requests(ctx, tab.ID)
				if backend.IsForbidden(err) {
					reqs = nil
				} else if err != nil {
					return err
				}

				fmt.Fprintln(e.out, styleBold.Render(tab.Label))
				if len(reqs) == 0 {
					printEmpty(e.out, "No requests.")
					return nil
				}
				rows := make([][]string, 0, len(reqs))
				for i := range reqs {
					r := &reqs[i]
					itemType := ""
					if r.Item != nil {
						itemType = r.Item.ItemType
					}
					rows = append(rows, []string{
						r.ID,
						r.RequestType,
						itemType,
						view.ActionLabel(tab.Own, r.RequestType, view.Counterpart(r, tab.Own)),
						badge(r.Status),
						view.FormatDate(r.CreatedAt, timeNow()),
					})
				}
				renderTable(e.out, []string{"ID", "Type", "Item", "Request", "Status", "Date"}, rows)
				return nil
			})
		},
	}

	cmd.AddCommand(newRespondCmd(app, view.ActionAccept, backend.ResponseApproved, "Request accepted successfully!"))
	cmd.AddCommand(newRespondCmd(app, view.ActionReject, backend.ResponseRejected, "Request rejected successfully!"))
	cmd.AddCommand(&cobra.Command{
		Use:   "cancel ID",
		Short: "Withdraw a pending request you sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				if err := e.session.CancelRequest(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(e.out, "Request cancelled.")
				return nil
			})
		},
	})
	return cmd
}

func newRespondCmd(app *App, action view.Action, response, done string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " ID",
		Short: action.Label() + " a request you received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, e *env) error {
				if err := e.session.RespondToRequest(ctx, args[0], response); err != nil {
					return err
				}
				fmt.Fprintln(e.out, done)
				return nil
			})
		},
	}
}
