package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/erazemk/findit/internal/model"
	"github.com/erazemk/findit/internal/view"
)

var (
	styleBold   = lipgloss.NewStyle().Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)

	badgeStyles = map[string]lipgloss.Style{
		"pending":  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"accepted": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"rejected": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// renderTable draws rows under headers with a rounded border.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleMuted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})
	fmt.Fprintln(w, t.String())
}

func printEmpty(w io.Writer, msg string) {
	fmt.Fprintln(w, styleMuted.Render(msg))
}

func printUser(w io.Writer, u *model.User) {
	fmt.Fprintln(w, styleBold.Render(u.Name()))
	fmt.Fprintf(w, "  Email:  %s\n", u.Email)
	fmt.Fprintf(w, "  Role:   %s\n", model.RoleName(u.Role))
	if u.Department != "" {
		fmt.Fprintf(w, "  Dept:   %s\n", u.Department)
	}
	if u.Designation != "" {
		fmt.Fprintf(w, "  Title:  %s\n", u.Designation)
	}
}

func itemRows(items []model.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for i := range items {
		it := &items[i]
		rows = append(rows, []string{
			it.ID,
			it.ItemType,
			truncate(it.Description, 40),
			it.Location,
			view.RelativeTime(it.Time),
			it.Status,
		})
	}
	return rows
}

func printItem(w io.Writer, it *model.Item) {
	fmt.Fprintf(w, "%s  %s\n", styleBold.Render(it.ItemType), styleMuted.Render(it.Status))
	fmt.Fprintf(w, "  ID:          %s\n", it.ID)
	if it.Token != "" {
		fmt.Fprintf(w, "  Token:       %s\n", it.Token)
	}
	fmt.Fprintf(w, "  Description: %s\n", it.Description)
	if it.Location != "" {
		fmt.Fprintf(w, "  Location:    %s\n", it.Location)
	}
	if it.Time != nil {
		fmt.Fprintf(w, "  When:        %s\n", it.Time.Local().Format("2 Jan 2006 15:04"))
	}
	if by := it.FoundBy.Contact(); by != "" {
		fmt.Fprintf(w, "  Found by:    %s\n", by)
	}
	if by := it.ReceivedBy.Contact(); by != "" {
		fmt.Fprintf(w, "  Received by: %s\n", by)
	}
	for i, q := range it.Questions {
		fmt.Fprintf(w, "  Q%d:          %s\n", i+1, q)
	}
}

func badge(status string) string {
	ind := view.StatusIndicator(status)
	if s, ok := badgeStyles[status]; ok {
		return s.Render(ind.Label)
	}
	return ind.Label
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
