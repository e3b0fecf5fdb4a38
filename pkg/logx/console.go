package logx

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5F87FF")).
			Padding(0, 1)
	bannerTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AD8CFF")).Bold(true)
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD7FF")).Padding(0, 1)
	cellStyle        = lipgloss.NewStyle().Padding(0, 1)
)

// Banner renders a boxed stage heading such as "Planner Agent / Creating project plan".
func Banner(title, subtitle string) string {
	body := bannerTitleStyle.Render(title)
	if subtitle != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, dimStyle.Render(subtitle))
	}
	return bannerStyle.Render(body)
}

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(r...)
	}
	return t.String()
}

// KeyValues renders a two-column table titled by title.
func KeyValues(title string, pairs [][2]string) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		bannerTitleStyle.Render(title),
		Table([]string{"Metric", "Value"}, rows),
	)
}

// Plain strips trailing spaces lipgloss pads lines with; handy in tests and logs.
func Plain(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
