package listview

import (
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/listdirector/pkg/director"
)

// PrototypeHeights measures rows by configuring an off-screen prototype cell
// per reuse identifier. It serves as both the height strategy and the cell
// registerer of a director.
type PrototypeHeights struct {
	mu         sync.Mutex
	width      int
	prototypes map[string]*TextCell
	last       map[string]int
}

var (
	_ director.HeightStrategy = (*PrototypeHeights)(nil)
	_ director.CellRegisterer = (*PrototypeHeights)(nil)
)

// NewPrototypeHeights measures at width columns.
func NewPrototypeHeights(width int) *PrototypeHeights {
	return &PrototypeHeights{
		width:      width,
		prototypes: map[string]*TextCell{},
		last:       map[string]int{},
	}
}

// Register creates the prototype for reuseID.
func (p *PrototypeHeights) Register(reuseID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.prototypes[reuseID]; !ok {
		p.prototypes[reuseID] = newTextCell(reuseID)
	}
}

// Registered reports whether reuseID has a prototype.
func (p *PrototypeHeights) Registered(reuseID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.prototypes[reuseID]
	return ok
}

// Height configures the prototype with the row and measures it.
func (p *PrototypeHeights) Height(row director.Row, _ director.IndexPath) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	proto, ok := p.prototypes[row.ReuseID]
	if !ok {
		proto = newTextCell(row.ReuseID)
		p.prototypes[row.ReuseID] = proto
	}
	proto.reset()
	if row.Configure != nil {
		row.Configure(proto)
	}
	h := max(proto.NaturalHeight(p.width), 1)
	p.last[row.ReuseID] = h
	return h
}

// EstimatedHeight returns the last measured height for the row's reuse
// identifier, or Automatic before anything was measured.
func (p *PrototypeHeights) EstimatedHeight(row director.Row, _ director.IndexPath) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.last[row.ReuseID]; ok {
		return h
	}
	return director.Automatic
}

// TextView is a header or footer made of fixed lines.
type TextView struct {
	Lines []string
	Style lipgloss.Style
}

var (
	_ director.View = TextView{}
	_ Renderer      = TextView{}
)

// NewTextView splits text into lines.
func NewTextView(text string) TextView {
	return TextView{Lines: strings.Split(strings.TrimRight(text, "\n"), "\n")}
}

func (v TextView) Height() int { return len(v.Lines) }

func (v TextView) Render(width int) string {
	out := make([]string, len(v.Lines))
	for i, l := range v.Lines {
		out[i] = v.Style.Render(runewidth.Truncate(l, width, "…"))
	}
	return strings.Join(out, "\n")
}
