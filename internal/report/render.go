package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/flagrant/internal/cli"
	"github.com/Veraticus/flagrant/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// TimeLayout is used for timestamps in rendered output.
const TimeLayout = "2006-01-02 15:04:05"

// TableOptions select the columns RenderTable prints.
type TableOptions struct {
	ShowFlag bool // Adds an is_flagged column, used when printing every row
	ShowTime bool
}

// RenderTable renders rows as a bordered table.
func RenderTable(rows []model.AnnotatedTransaction, opts TableOptions) string {
	headers := []string{"user_id", "amount", "country"}
	if opts.ShowTime {
		headers = append(headers, "time")
	}
	if opts.ShowFlag {
		headers = append(headers, "is_flagged")
	}
	headers = append(headers, "reason")

	data := make([][]string, 0, len(rows))
	for _, a := range rows {
		row := []string{a.UserID, formatAmount(a.Amount), a.Country}
		if opts.ShowTime {
			row = append(row, a.Time.Format(TimeLayout))
		}
		if opts.ShowFlag {
			row = append(row, strconv.FormatBool(a.IsFlagged))
		}
		data = append(data, append(row, a.Reason()))
	}

	reasonCol := len(headers) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(cli.SubtleStyle).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cli.TableHeaderStyle
			}
			if col == reasonCol && row >= 0 && row < len(rows) && rows[row].IsFlagged {
				return cli.TableCellStyle.Foreground(cli.ErrorColor)
			}
			return cli.TableCellStyle
		})

	return t.String()
}

// RenderSummary renders the summary metrics in a box.
func RenderSummary(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Transactions:   %d\n", s.Total)
	fmt.Fprintf(&b, "Flagged:        %d (%.1f%%)\n", s.Flagged, s.FlaggedRatio*100)
	fmt.Fprintf(&b, "Flagged amount: $%s\n", formatAmount(s.FlaggedAmount))

	b.WriteString("\n" + cli.BoldStyle.Render("By rule") + "\n")
	for _, r := range model.AllRules {
		fmt.Fprintf(&b, "  %-16s %d\n", r.Label(), s.ByRule[r])
	}

	if len(s.ByReason) > 0 {
		b.WriteString("\n" + cli.BoldStyle.Render("By reason") + "\n")
		for _, rc := range s.ByReason {
			fmt.Fprintf(&b, "  %-48s %d\n", strings.TrimSuffix(rc.Reason, model.ReasonSeparator), rc.Count)
		}
	}

	return cli.RenderBox(cli.ChartIcon+" Detection summary", strings.TrimRight(b.String(), "\n"))
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
