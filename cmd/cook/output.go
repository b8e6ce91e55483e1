package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/ui/style"
)

var headerStyle = lipgloss.NewStyle().Foreground(style.Magenta).Bold(true).Padding(0, 1)

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Base01)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(w, t.Render())
}

func printResult(w io.Writer, action string, res *txn.Result) {
	fmt.Fprintf(w, "%s: %s\n", action, res.Status)
	if !res.Signature.IsZero() {
		fmt.Fprintf(w, "  signature:    %s\n", res.Signature)
	}
	fmt.Fprintf(w, "  priority fee: %d micro-lamports/CU\n", res.PriorityFee)
	fmt.Fprintf(w, "  elapsed:      %s\n", res.Elapsed.Round(1e6))
}

func printSnapshot(w io.Writer, s launch.Snapshot) {
	fmt.Fprintf(w, "%s  %s\n", style.Title.Render(s.Page), lipgloss.NewStyle().Foreground(style.BadgeColor(s.Badge)).Render(s.Badge))
	if s.Launch == nil {
		fmt.Fprintln(w, "  launch not found")
		return
	}
	l := s.Launch
	rows := [][]string{
		{"Token", fmt.Sprintf("%s (%s)", l.Name, l.Symbol)},
		{"State", s.State.String()},
		{"Tickets", s.Header},
		{"Progress", fmt.Sprintf("%.1f%%", s.Progress)},
		{"Win probability", fmt.Sprintf("%.2f%%", s.WinProbability*100)},
		{"Tokens per winning ticket", s.TokensPerWinningTicket.String()},
		{"Guaranteed liquidity", fmt.Sprintf("%s / %s SOL", s.LiquidityRaised.StringFixed(2), s.LiquidityTarget.StringFixed(2))},
		{"Liquidity", s.Liquidity.String()},
		{"Action", s.Action.String()},
	}
	if s.Join != nil {
		rows = append(rows,
			[]string{"My tickets", fmt.Sprintf("%d (%d checked)", s.Join.NumTickets, s.Join.NumClaimedTickets)},
			[]string{"Win rate", s.WinRate},
		)
	}
	if len(s.Distribution) > 0 {
		shares := make([]string, 0, len(s.Distribution))
		for _, d := range s.Distribution {
			shares = append(shares, fmt.Sprintf("%s %d%%", d.Label, d.Percent))
		}
		rows = append(rows, []string{"Distribution", strings.Join(shares, ", ")})
	}
	printTable(w, []string{"Field", "Value"}, rows)
}
