package listview

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/google/uuid"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/listdirector/pkg/director"
)

// TextCell is the cell the list hands to rows. Rows set its text in their
// configure handler; the widget draws it.
type TextCell struct {
	handle  uuid.UUID
	reuseID string

	Title  string
	Detail string
	Badge  string // right-aligned tag such as a status
}

var _ director.Cell = (*TextCell)(nil)

func newTextCell(reuseID string) *TextCell {
	return &TextCell{handle: uuid.New(), reuseID: reuseID}
}

func (c *TextCell) ReuseID() string { return c.reuseID }

// Handle identifies the cell for reverse lookups. It survives reuse.
func (c *TextCell) Handle() uuid.UUID { return c.handle }

// reset clears content before the cell is handed to another row.
func (c *TextCell) reset() {
	c.Title, c.Detail, c.Badge = "", "", ""
}

// NaturalHeight is the number of lines the cell needs at width.
func (c *TextCell) NaturalHeight(width int) int {
	return len(c.lines(width))
}

func (c *TextCell) lines(width int) []string {
	if width < 4 {
		width = 4
	}
	title := c.Title
	if c.Badge != "" {
		gap := width - runewidth.StringWidth(c.Badge) - 1
		title = runewidth.Truncate(title, max(gap, 1), "…")
		pad := width - runewidth.StringWidth(title) - runewidth.StringWidth(c.Badge)
		title += strings.Repeat(" ", max(pad, 1)) + c.Badge
	}
	out := []string{runewidth.Truncate(title, width, "…")}
	if c.Detail == "" {
		return out
	}
	for _, line := range strings.Split(c.Detail, "\n") {
		out = append(out, "  "+runewidth.Truncate(line, width-2, "…"))
	}
	return out
}

// render draws exactly height lines of width columns.
func (c *TextCell) render(width, height int, th Theme, selected, dim, noColor bool) []string {
	lines := c.lines(width)
	if height > 0 {
		for len(lines) < height {
			lines = append(lines, "")
		}
		lines = lines[:height]
	}
	for i, line := range lines {
		line = runewidth.FillRight(line, width)
		if noColor {
			if selected {
				line = "> " + runewidth.Truncate(line, width-2, "")
			}
			lines[i] = line
			continue
		}
		style := lipgloss.NewStyle().Foreground(th.TitleFG)
		if i > 0 {
			style = style.Foreground(th.DetailFG)
		}
		switch {
		case selected:
			style = style.Foreground(th.SelectedFG).Background(th.SelectedBG)
		case dim:
			style = style.Foreground(th.DimFG)
		}
		lines[i] = style.Render(line)
	}
	return lines
}
