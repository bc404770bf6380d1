package cmd

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/listdirector/internal/ui/listview"
	"github.com/oakwood-commons/listdirector/pkg/director"
	"github.com/oakwood-commons/listdirector/pkg/settings"
	"github.com/oakwood-commons/listdirector/pkg/tui"
)

//go:embed default_config.yaml
var defaultConfigYAML []byte

// fileConfig is the on-disk configuration.
type fileConfig struct {
	App      appConfig      `yaml:"app" toml:"app"`
	Query    queryConfig    `yaml:"query" toml:"query"`
	Sections sectionsConfig `yaml:"sections" toml:"sections"`
}

type appConfig struct {
	Name   string                          `yaml:"name" toml:"name"`
	Theme  string                          `yaml:"theme" toml:"theme"`
	Watch  string                          `yaml:"watch" toml:"watch"`
	Themes map[string]listview.ThemeConfig `yaml:"themes" toml:"themes"`
}

type queryConfig struct {
	SQL     string             `yaml:"sql" toml:"sql"`
	Key     string             `yaml:"key" toml:"key"`
	Group   string             `yaml:"group" toml:"group"`
	Filter  string             `yaml:"filter" toml:"filter"`
	RowKind string             `yaml:"row_kind" toml:"row_kind"`
	Layout  tui.Layout         `yaml:"layout" toml:"layout"`
	Delete  string             `yaml:"delete" toml:"delete"`
	Actions []tui.RecordAction `yaml:"actions" toml:"actions"`
}

type sectionsConfig struct {
	Data   dataSection         `yaml:"data" toml:"data"`
	Before []tui.SectionConfig `yaml:"before" toml:"before"`
	After  []tui.SectionConfig `yaml:"after" toml:"after"`
}

type dataSection struct {
	Header string `yaml:"header" toml:"header"`
	Footer string `yaml:"footer" toml:"footer"`
}

// configLoader centralizes config loading so tests can swap the defaults.
type configLoader struct {
	defaultConfig func() ([]byte, error)
}

var cfgLoader = configLoader{defaultConfig: loadDefaultConfigYAML}

func loadMergedConfig(cfgPath string) (fileConfig, error) {
	return cfgLoader.loadMergedConfig(cfgPath)
}

func loadDefaultConfigYAML() ([]byte, error) {
	if len(defaultConfigYAML) == 0 {
		return nil, fmt.Errorf("embedded default config is empty")
	}
	return defaultConfigYAML, nil
}

// loadMergedConfig decodes the defaults, then the user file on top. Keys the
// file sets replace the default values, lists included.
func (l configLoader) loadMergedConfig(cfgPath string) (fileConfig, error) {
	var cfg fileConfig

	defaultData, err := l.defaultConfig()
	if err != nil {
		return cfg, fmt.Errorf("load default config: %w", err)
	}
	if err := yaml.Unmarshal(defaultData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse default config: %w", err)
	}
	if cfgPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", cfgPath, err)
	}
	switch strings.ToLower(filepath.Ext(cfgPath)) {
	case ".toml":
		var over fileConfig
		if err := toml.Unmarshal(data, &over); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
		cfg = mergeConfig(cfg, over)
	case ".yaml", ".yml", "":
		var over fileConfig
		if err := yaml.Unmarshal(data, &over); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
		cfg = mergeConfig(cfg, over)
	default:
		return cfg, fmt.Errorf("config %s: unsupported format %q (use .yaml or .toml)", cfgPath, filepath.Ext(cfgPath))
	}
	return cfg, nil
}

// mergeConfig overlays the non-zero fields of override onto base.
func mergeConfig(base, override fileConfig) fileConfig {
	setString(&base.App.Name, override.App.Name)
	setString(&base.App.Theme, override.App.Theme)
	setString(&base.App.Watch, override.App.Watch)
	if len(override.App.Themes) > 0 {
		if base.App.Themes == nil {
			base.App.Themes = map[string]listview.ThemeConfig{}
		}
		for name, th := range override.App.Themes {
			base.App.Themes[name] = th
		}
	}

	q, o := &base.Query, override.Query
	setString(&q.SQL, o.SQL)
	setString(&q.Key, o.Key)
	setString(&q.Group, o.Group)
	setString(&q.Filter, o.Filter)
	setString(&q.RowKind, o.RowKind)
	setString(&q.Delete, o.Delete)
	if o.Layout.TitleColumn != "" || len(o.Layout.DetailColumns) > 0 || o.Layout.BadgeColumn != "" {
		q.Layout = o.Layout
	}
	if o.Actions != nil {
		q.Actions = o.Actions
	}

	setString(&base.Sections.Data.Header, override.Sections.Data.Header)
	setString(&base.Sections.Data.Footer, override.Sections.Data.Footer)
	if override.Sections.Before != nil {
		base.Sections.Before = override.Sections.Before
	}
	if override.Sections.After != nil {
		base.Sections.After = override.Sections.After
	}
	return base
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// resolveConfigPath returns explicit if set, otherwise
// $XDG_CONFIG_HOME/listdirector/config.yaml or ~/.config/listdirector/config.yaml
// when present.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	candidate := ""
	if xdg != "" {
		candidate = filepath.Join(xdg, settings.CliBinaryName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", settings.CliBinaryName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// resolveTheme picks a theme defined in the file, else a preset. File themes
// are overrides on top of the preset of the same name, or dark.
func (c fileConfig) resolveTheme(name string) (listview.Theme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "dark"
	}
	if over, ok := c.App.Themes[name]; ok {
		base, err := listview.ThemeByName(name)
		if err != nil {
			base = listview.DefaultTheme()
		}
		return over.Apply(base), nil
	}
	th, err := listview.ThemeByName(name)
	if err != nil {
		return listview.Theme{}, fmt.Errorf("%w (config themes: %s)", err, strings.Join(c.themeNames(), ", "))
	}
	return th, nil
}

func (c fileConfig) themeNames() []string {
	names := make([]string, 0, len(c.App.Themes))
	for n := range c.App.Themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c fileConfig) watchInterval() (time.Duration, error) {
	if strings.TrimSpace(c.App.Watch) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.App.Watch)
	if err != nil {
		return 0, fmt.Errorf("app.watch: %w", err)
	}
	return d, nil
}

// tuiConfig maps the file onto a tui.Config. DB, sizes and colors come from
// flags.
func (c fileConfig) tuiConfig() (tui.Config, error) {
	out := tui.DefaultConfig()
	if c.App.Name != "" {
		out.AppName = c.App.Name
	}
	th, err := c.resolveTheme(c.App.Theme)
	if err != nil {
		return out, err
	}
	out.Theme = th
	if out.WatchInterval, err = c.watchInterval(); err != nil {
		return out, err
	}

	out.Query = c.Query.SQL
	out.KeyColumn = c.Query.Key
	out.GroupColumn = c.Query.Group
	out.Filter = c.Query.Filter
	out.Layout = c.Query.Layout
	out.DeleteStatement = c.Query.Delete
	out.Actions = c.Query.Actions
	switch director.RowKind(strings.ToLower(c.Query.RowKind)) {
	case tui.RowCompact:
		out.RowKind = tui.RowCompact
	case tui.RowDetailed, "":
		out.RowKind = tui.RowDetailed
	default:
		return out, fmt.Errorf("query.row_kind: unknown kind %q (use compact or detailed)", c.Query.RowKind)
	}

	out.DataHeader = c.Sections.Data.Header
	out.DataFooter = c.Sections.Data.Footer
	out.SectionsBefore = c.Sections.Before
	out.SectionsAfter = c.Sections.After
	return out, nil
}

// marshalConfig renders cfg in the given format.
func marshalConfig(cfg fileConfig, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "toml":
		return toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported output %q (use yaml or toml)", format)
	}
}
