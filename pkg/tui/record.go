package tui

import (
	"strings"

	"github.com/oakwood-commons/listdirector/internal/ui/listview"
	"github.com/oakwood-commons/listdirector/pkg/director"
	"github.com/oakwood-commons/listdirector/pkg/sqlsource"
)

// Record is one result row as shown in the data section.
type Record struct {
	sqlsource.Record
	s *session
}

var _ director.RowProducer = Record{}

// Title is the row's headline: the layout's title column, else the first
// column.
func (r Record) Title(l Layout) string {
	if l.TitleColumn != "" {
		return r.String(l.TitleColumn)
	}
	if len(r.Columns) > 0 {
		return r.String(r.Columns[0])
	}
	return ""
}

// Detail joins the non-empty detail columns, one per line.
func (r Record) Detail(l Layout) string {
	var lines []string
	for _, c := range l.DetailColumns {
		if v := r.String(c); v != "" {
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n")
}

// Row implements director.RowProducer. Compact rows drop the detail lines.
func (r Record) Row(kind director.RowKind, action func()) director.Row {
	var layout Layout
	if r.s != nil {
		layout = r.s.cfg.Layout
	}
	title, badge := r.Title(layout), ""
	if layout.BadgeColumn != "" {
		badge = r.String(layout.BadgeColumn)
	}
	detail := ""
	if kind != RowCompact {
		detail = r.Detail(layout)
	}

	row := director.NewRow("record-"+string(kind), func(c director.Cell) {
		if tc, ok := c.(*listview.TextCell); ok {
			tc.Title, tc.Detail, tc.Badge = title, detail, badge
		}
	}).On(director.ActionSelect, func(director.ActionContext) any {
		action()
		return nil
	})
	if r.s == nil {
		return row
	}
	return r.s.bindRecord(row, r)
}
