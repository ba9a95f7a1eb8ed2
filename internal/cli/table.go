package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows of styled cells in aligned columns.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render lays the table out. Column width is the widest cell as displayed,
// so cells may carry ANSI styling.
func (t *Table) Render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(t.line(t.headers, widths)))
	b.WriteString("\n")
	for _, row := range t.rows {
		b.WriteString(t.line(row, widths))
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Table) line(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := widths[i] - lipgloss.Width(cell)
		parts[i] = TableCellStyle.Render(cell + strings.Repeat(" ", pad))
	}
	return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
}
