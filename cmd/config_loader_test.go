package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/listdirector/internal/ui/listview"
	"github.com/oakwood-commons/listdirector/pkg/tui"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMergedConfig_Defaults(t *testing.T) {
	fc, err := loadMergedConfig("")
	require.NoError(t, err)
	assert.Equal(t, "listdirector", fc.App.Name)
	assert.Equal(t, "id", fc.Query.Key)
	assert.Contains(t, fc.Query.SQL, "FROM tasks")
	require.Len(t, fc.Query.Actions, 2)
	assert.Equal(t, "x", fc.Query.Actions[0].Key)
	require.Len(t, fc.Sections.Before, 1)
	assert.Equal(t, "Start here", fc.Sections.Before[0].Header)

	cfg, err := fc.tuiConfig()
	require.NoError(t, err)
	assert.Equal(t, tui.RowDetailed, cfg.RowKind)
	assert.Equal(t, "Tasks", cfg.DataHeader)
	assert.Equal(t, []string{"detail", "tags"}, cfg.Layout.DetailColumns)
	assert.Equal(t, listview.DefaultTheme(), cfg.Theme)
	assert.Zero(t, cfg.WatchInterval)
}

func TestLoadMergedConfig_YAMLOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", `
app:
  theme: custom
  themes:
    custom:
      header_fg: 200
query:
  row_kind: compact
sections:
  after: []
`)
	fc, err := loadMergedConfig(path)
	require.NoError(t, err)
	assert.Contains(t, fc.Query.SQL, "FROM tasks", "unset keys keep defaults")
	assert.Empty(t, fc.Sections.After, "an explicit empty list replaces the default")
	assert.Len(t, fc.Sections.Before, 1)

	cfg, err := fc.tuiConfig()
	require.NoError(t, err)
	assert.Equal(t, tui.RowCompact, cfg.RowKind)
	assert.NotEqual(t, listview.DefaultTheme().HeaderFG, cfg.Theme.HeaderFG)
	assert.Equal(t, listview.DefaultTheme().TitleFG, cfg.Theme.TitleFG)
}

func TestLoadMergedConfig_TOMLOverride(t *testing.T) {
	path := writeFile(t, "config.toml", `
[app]
name = "inbox"
watch = "2s"

[query]
filter = 'r.priority > 1'

[[sections.before]]
header = "Pinned"

[[sections.before.rows]]
title = "Docs"
url = "https://example.com"
`)
	fc, err := loadMergedConfig(path)
	require.NoError(t, err)
	cfg, err := fc.tuiConfig()
	require.NoError(t, err)

	assert.Equal(t, "inbox", cfg.AppName)
	assert.Equal(t, 2*time.Second, cfg.WatchInterval)
	assert.Equal(t, "r.priority > 1", cfg.Filter)
	require.Len(t, cfg.SectionsBefore, 1)
	assert.Equal(t, "Pinned", cfg.SectionsBefore[0].Header)
	require.Len(t, cfg.SectionsBefore[0].Rows, 1)
	assert.Equal(t, "https://example.com", cfg.SectionsBefore[0].Rows[0].URL)
	assert.Equal(t, "DELETE FROM tasks WHERE id = ?", cfg.DeleteStatement)
}

func TestLoadMergedConfig_Errors(t *testing.T) {
	_, err := loadMergedConfig(writeFile(t, "config.ini", "a=b"))
	assert.ErrorContains(t, err, "unsupported format")

	_, err = loadMergedConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = loadMergedConfig(writeFile(t, "bad.yaml", "query: [unterminated"))
	assert.ErrorContains(t, err, "parse config")

	broken := configLoader{defaultConfig: func() ([]byte, error) { return []byte("app: ["), nil }}
	_, err = broken.loadMergedConfig("")
	assert.ErrorContains(t, err, "parse default config")
}

func TestTUIConfig_Errors(t *testing.T) {
	cases := map[string]struct {
		yaml string
		want string
	}{
		"row kind": {yaml: "query:\n  row_kind: huge\n", want: "unknown kind"},
		"watch":    {yaml: "app:\n  watch: soon\n", want: "app.watch"},
		"theme":    {yaml: "app:\n  theme: neon\n", want: "unknown theme"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fc, err := loadMergedConfig(writeFile(t, "c.yaml", tc.yaml))
			require.NoError(t, err)
			_, err = fc.tuiConfig()
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	assert.Equal(t, "explicit.yaml", resolveConfigPath("explicit.yaml"))
	assert.Empty(t, resolveConfigPath(""))

	dir := filepath.Join(xdg, "listdirector")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: {}\n"), 0o600))
	assert.Equal(t, path, resolveConfigPath(""))
}

func TestMarshalConfig(t *testing.T) {
	fc, err := loadMergedConfig("")
	require.NoError(t, err)

	y, err := marshalConfig(fc, "yaml")
	require.NoError(t, err)
	assert.Contains(t, string(y), "row_kind: detailed")

	tm, err := marshalConfig(fc, "toml")
	require.NoError(t, err)
	assert.Contains(t, string(tm), "[query]")
	assert.Contains(t, string(tm), "Mark done")

	_, err = marshalConfig(fc, "xml")
	assert.Error(t, err)
}
