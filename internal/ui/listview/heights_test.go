package listview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/listdirector/pkg/director"
)

func TestPrototypeHeights(t *testing.T) {
	p := NewPrototypeHeights(40)
	row := director.NewRow("card", func(c director.Cell) {
		tc := c.(*TextCell)
		tc.Title = "title"
		tc.Detail = "one\ntwo"
	})

	assert.Equal(t, director.Automatic, p.EstimatedHeight(row, director.IndexPath{}))
	p.Register("card")
	assert.True(t, p.Registered("card"))
	assert.Equal(t, 3, p.Height(row, director.IndexPath{}))
	assert.Equal(t, 3, p.EstimatedHeight(row, director.IndexPath{}))

	plain := director.NewRow("plain", nil)
	assert.Equal(t, 1, p.Height(plain, director.IndexPath{}))
}

func TestPrototypeHeights_DriveDirectorHeights(t *testing.T) {
	heights := NewPrototypeHeights(40)
	m := New(Options{NoColor: true})
	row := director.NewRow("card", func(c director.Cell) {
		c.(*TextCell).Detail = "a\nb\nc"
	})
	director.New[task](t.Context(), director.Config[task]{
		Widget:         m,
		Provider:       &sliceProvider{},
		Queue:          m.Queue(),
		SectionsBefore: []director.Section{director.NewSection(row)},
		HeightStrategy: heights,
		Registerer:     heights,
	})
	m.Drain()

	require.Len(t, m.rows, 1)
	e := m.entries[m.rows[0]]
	assert.Equal(t, 4, e.height)
	assert.False(t, e.auto)
}

func TestTextView(t *testing.T) {
	v := NewTextView("first\nsecond line that is long\n")
	assert.Equal(t, 2, v.Height())
	assert.Equal(t, "first\nsecond…", v.Render(7))
}

func TestCell_BadgeAndTruncation(t *testing.T) {
	c := newTextCell("x")
	c.Title = "a rather long title"
	c.Badge = "open"
	lines := c.lines(16)
	require.Len(t, lines, 1)
	assert.Equal(t, "a rather l… open", lines[0])
	assert.Equal(t, "x", c.ReuseID())
	assert.NotEqual(t, newTextCell("x").Handle(), c.Handle())
}

func TestTheme(t *testing.T) {
	th, err := ThemeByName("Light")
	require.NoError(t, err)
	assert.Equal(t, Presets["light"], th)

	_, err = ThemeByName("neon")
	require.ErrorContains(t, err, "available: dark, light, warm")

	var cfg ThemeConfig
	require.NoError(t, yaml.Unmarshal([]byte("header_fg: 200\nselected_bg: \"#112233\"\n"), &cfg))
	applied := cfg.Apply(DefaultTheme())
	assert.NotEqual(t, DefaultTheme().HeaderFG, applied.HeaderFG)
	assert.NotEqual(t, DefaultTheme().SelectedBG, applied.SelectedBG)
	assert.Equal(t, DefaultTheme().TitleFG, applied.TitleFG)
}
