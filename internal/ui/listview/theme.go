package listview

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
	"gopkg.in/yaml.v3"
)

// Theme defines the colors used to draw the list.
type Theme struct {
	HeaderFG       color.Color // Section header text
	FooterFG       color.Color // Section footer text
	TitleFG        color.Color // Row title
	DetailFG       color.Color // Row detail line
	SelectedFG     color.Color // Cursor row foreground
	SelectedBG     color.Color // Cursor row background
	DimFG          color.Color // Rows that refuse highlighting
	SeparatorColor color.Color // Rule under section headers
	StatusColor    color.Color // Status bar text
	StatusError    color.Color // Status bar errors
	InputFG        color.Color // Filter input text
}

// ColorValue stores a color token (ANSI number, name or hex) as written in
// config files. YAML ints and strings are both accepted.
type ColorValue string

func (c *ColorValue) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*c = ""
		return nil
	}
	*c = ColorValue(value.Value)
	return nil
}

// UnmarshalText accepts TOML strings.
func (c *ColorValue) UnmarshalText(text []byte) error {
	*c = ColorValue(text)
	return nil
}

// ThemeConfig is the config-file form of a Theme. Empty fields inherit from
// the base theme.
type ThemeConfig struct {
	HeaderFG       ColorValue `yaml:"header_fg" toml:"header_fg"`
	FooterFG       ColorValue `yaml:"footer_fg" toml:"footer_fg"`
	TitleFG        ColorValue `yaml:"title_fg" toml:"title_fg"`
	DetailFG       ColorValue `yaml:"detail_fg" toml:"detail_fg"`
	SelectedFG     ColorValue `yaml:"selected_fg" toml:"selected_fg"`
	SelectedBG     ColorValue `yaml:"selected_bg" toml:"selected_bg"`
	DimFG          ColorValue `yaml:"dim_fg" toml:"dim_fg"`
	SeparatorColor ColorValue `yaml:"separator_color" toml:"separator_color"`
	StatusColor    ColorValue `yaml:"status_color" toml:"status_color"`
	StatusError    ColorValue `yaml:"status_error" toml:"status_error"`
	InputFG        ColorValue `yaml:"input_fg" toml:"input_fg"`
}

func pick(v ColorValue, base color.Color) color.Color {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return base
	}
	return lipgloss.Color(s)
}

// Apply overlays the configured colors on base.
func (c ThemeConfig) Apply(base Theme) Theme {
	return Theme{
		HeaderFG:       pick(c.HeaderFG, base.HeaderFG),
		FooterFG:       pick(c.FooterFG, base.FooterFG),
		TitleFG:        pick(c.TitleFG, base.TitleFG),
		DetailFG:       pick(c.DetailFG, base.DetailFG),
		SelectedFG:     pick(c.SelectedFG, base.SelectedFG),
		SelectedBG:     pick(c.SelectedBG, base.SelectedBG),
		DimFG:          pick(c.DimFG, base.DimFG),
		SeparatorColor: pick(c.SeparatorColor, base.SeparatorColor),
		StatusColor:    pick(c.StatusColor, base.StatusColor),
		StatusError:    pick(c.StatusError, base.StatusError),
		InputFG:        pick(c.InputFG, base.InputFG),
	}
}

// Presets are the built-in palettes.
var Presets = map[string]Theme{
	"dark": {
		HeaderFG:       lipgloss.Color("81"),  // cyan
		FooterFG:       lipgloss.Color("244"), // muted gray
		TitleFG:        lipgloss.Color("252"),
		DetailFG:       lipgloss.Color("246"),
		SelectedFG:     lipgloss.Color("250"),
		SelectedBG:     lipgloss.Color("24"), // deep teal
		DimFG:          lipgloss.Color("240"),
		SeparatorColor: lipgloss.Color("238"),
		StatusColor:    lipgloss.Color("81"),
		StatusError:    lipgloss.Color("203"),
		InputFG:        lipgloss.Color("246"),
	},
	"light": {
		HeaderFG:       lipgloss.Color("25"),
		FooterFG:       lipgloss.Color("243"),
		TitleFG:        lipgloss.Color("235"),
		DetailFG:       lipgloss.Color("241"),
		SelectedFG:     lipgloss.Color("232"),
		SelectedBG:     lipgloss.Color("153"),
		DimFG:          lipgloss.Color("249"),
		SeparatorColor: lipgloss.Color("252"),
		StatusColor:    lipgloss.Color("25"),
		StatusError:    lipgloss.Color("160"),
		InputFG:        lipgloss.Color("238"),
	},
	"warm": {
		HeaderFG:       lipgloss.Color("214"),
		FooterFG:       lipgloss.Color("180"),
		TitleFG:        lipgloss.Color("223"),
		DetailFG:       lipgloss.Color("180"),
		SelectedFG:     lipgloss.Color("230"),
		SelectedBG:     lipgloss.Color("94"),
		DimFG:          lipgloss.Color("239"),
		SeparatorColor: lipgloss.Color("58"),
		StatusColor:    lipgloss.Color("214"),
		StatusError:    lipgloss.Color("196"),
		InputFG:        lipgloss.Color("223"),
	},
}

// DefaultTheme returns the "dark" preset.
func DefaultTheme() Theme {
	return Presets["dark"]
}

// ThemeByName looks up a preset.
func ThemeByName(name string) (Theme, error) {
	if th, ok := Presets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return th, nil
	}
	return Theme{}, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
}

// ThemeNames lists the presets, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
