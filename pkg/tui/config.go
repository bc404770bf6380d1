package tui

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/listdirector/internal/ui/listview"
	"github.com/oakwood-commons/listdirector/pkg/director"
)

// Row kinds understood by Record.
const (
	RowCompact  director.RowKind = "compact"
	RowDetailed director.RowKind = "detailed"
)

// Config holds host-provided settings for browsing a query.
type Config struct {
	AppName string

	// DB is required. Run and RenderSnapshot never close it.
	DB    *sql.DB
	Query string
	Args  []any

	// KeyColumn identifies rows across refreshes and is bound to
	// DeleteStatement and Actions statements as their only argument.
	KeyColumn   string
	GroupColumn string
	Layout      Layout
	RowKind     director.RowKind

	// Filter is the initial CEL filter over r.
	Filter string

	SectionsBefore []SectionConfig
	SectionsAfter  []SectionConfig
	DataHeader     string
	DataFooter     string

	// DeleteStatement runs when a data row is deleted, e.g.
	// "DELETE FROM tasks WHERE id = ?". Empty disables deletion.
	DeleteStatement string
	Actions         []RecordAction

	Width     int
	Height    int
	NoColor   bool
	Theme     listview.Theme
	ThemeName string // takes precedence over Theme

	// WatchInterval polls the database for outside writes. Zero disables it.
	WatchInterval time.Duration

	Logger logr.Logger
}

// Layout maps result columns onto the parts of a row.
type Layout struct {
	TitleColumn   string   `yaml:"title" toml:"title"`
	DetailColumns []string `yaml:"detail" toml:"detail"`
	BadgeColumn   string   `yaml:"badge" toml:"badge"`
}

// SectionConfig declares a static section.
type SectionConfig struct {
	Header string      `yaml:"header" toml:"header"`
	Footer string      `yaml:"footer" toml:"footer"`
	Rows   []StaticRow `yaml:"rows" toml:"rows"`
}

// StaticRow is a fixed row. Rows with a URL or Copy text are selectable;
// the rest are labels the cursor skips.
type StaticRow struct {
	Title  string `yaml:"title" toml:"title"`
	Detail string `yaml:"detail" toml:"detail"`
	Height int    `yaml:"height" toml:"height"`
	URL    string `yaml:"url" toml:"url"`
	Copy   string `yaml:"copy" toml:"copy"`
}

// RecordAction is an extra action offered on data rows. Key is both the key
// that triggers it and its entry in the actions menu.
type RecordAction struct {
	Title     string `yaml:"title" toml:"title"`
	Key       string `yaml:"key" toml:"key"`
	Statement string `yaml:"statement" toml:"statement"`
}

// DefaultConfig returns the settings used when the host sets nothing else.
func DefaultConfig() Config {
	return Config{
		AppName:    "listdirector",
		RowKind:    RowDetailed,
		DataHeader: "Results",
		Theme:      listview.DefaultTheme(),
	}
}

func (c Config) validate() error {
	if c.DB == nil {
		return fmt.Errorf("tui: Config.DB is required")
	}
	if strings.TrimSpace(c.Query) == "" {
		return fmt.Errorf("tui: Config.Query is required")
	}
	if (c.DeleteStatement != "" || len(c.Actions) > 0) && c.KeyColumn == "" {
		return fmt.Errorf("tui: row statements need a key column")
	}
	for _, a := range c.Actions {
		if a.Key == "" || a.Statement == "" {
			return fmt.Errorf("tui: action %q needs a key and a statement", a.Title)
		}
		if slices.Contains(reservedKeys, a.Key) {
			return fmt.Errorf("tui: action %q: key %q is reserved", a.Title, a.Key)
		}
	}
	return nil
}

// reservedKeys are bound by the list itself.
var reservedKeys = []string{
	"up", "down", "k", "j", "pgup", "pgdown", "ctrl+b", "ctrl+f", "home", "end", "g", "G",
	"enter", "space", "d", "delete", "e", "/", "r", "esc", "q", "ctrl+c",
}

// theme resolves ThemeName, then Theme, then the default palette.
func (c Config) theme() (listview.Theme, error) {
	if c.ThemeName != "" {
		return listview.ThemeByName(c.ThemeName)
	}
	if c.Theme != (listview.Theme{}) {
		return c.Theme, nil
	}
	return listview.DefaultTheme(), nil
}

func (c Config) cellKeys() map[string]string {
	if len(c.Actions) == 0 {
		return nil
	}
	keys := make(map[string]string, len(c.Actions))
	for _, a := range c.Actions {
		keys[a.Key] = a.Key
	}
	return keys
}
