// Package tui is the host-facing API for browsing a live SQL query as a
// sectioned list: interactively with Run, as text with RenderSnapshot, or as
// structured data with Collect.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"
	"golang.org/x/term"

	"github.com/oakwood-commons/listdirector/internal/predicate"
	"github.com/oakwood-commons/listdirector/internal/ui/listview"
	"github.com/oakwood-commons/listdirector/pkg/director"
	"github.com/oakwood-commons/listdirector/pkg/sqlsource"
)

// defaultFallbackTermWidth is used when terminal size cannot be detected.
const defaultFallbackTermWidth = 120

// DetectTerminalSize returns the best-effort terminal width and height by
// probing stdout, stderr and stdin, then the COLUMNS environment variable.
// It falls back to 120x24.
func DetectTerminalSize() (width int, height int) {
	fds := []uintptr{os.Stdout.Fd(), os.Stderr.Fd(), os.Stdin.Fd()}
	for _, fd := range fds {
		if w, h, err := term.GetSize(int(fd)); err == nil && (w > 0 || h > 0) {
			return w, h
		}
	}
	if col := os.Getenv("COLUMNS"); col != "" {
		if w, err := strconv.Atoi(col); err == nil && w > 0 {
			return w, 24
		}
	}
	return defaultFallbackTermWidth, 24
}

// WithIO returns tea.ProgramOptions to set custom input/output.
func WithIO(in io.Reader, out io.Writer) []tea.ProgramOption {
	opts := []tea.ProgramOption{}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	return opts
}

// Run browses cfg.Query until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	forced := cfg.Width > 0 && cfg.Height > 0
	cfg = withTerminalSize(cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := newSession(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer s.dir.Detach()

	if cfg.WatchInterval > 0 {
		go func() {
			if err := s.provider.Watch(ctx, cfg.WatchInterval); err != nil {
				s.log.Error(err, "watch stopped")
			}
		}()
	}

	if forced {
		opts = append(opts, tea.WithWindowSize(cfg.Width, cfg.Height))
	}
	prog := tea.NewProgram(s.model, opts...)
	go func() {
		<-ctx.Done()
		prog.Quit()
	}()
	_, err = prog.Run()
	return err
}

// RenderSnapshot renders the first screen of the list without starting a
// program.
func RenderSnapshot(ctx context.Context, cfg Config) (string, error) {
	s, err := newSession(ctx, withTerminalSize(cfg), false)
	if err != nil {
		return "", err
	}
	defer s.dir.Detach()
	return s.model.Render(), nil
}

// Document is the whole list as plain data.
type Document struct {
	Title    string
	Sections []DocumentSection
}

type DocumentSection struct {
	Header string
	Footer string
	// Data is set on the section that mirrors the query.
	Data bool
	Rows []DocumentRow
}

type DocumentRow struct {
	Title  string
	Detail string
	Badge  string
}

// Collect lays the list out once and returns every section and row,
// including rows that would be scrolled out of view.
func Collect(ctx context.Context, cfg Config) (Document, error) {
	s, err := newSession(ctx, withTerminalSize(cfg), false)
	if err != nil {
		return Document{}, err
	}
	defer s.dir.Detach()

	doc := Document{Title: cfg.AppName}
	for sec := range s.dir.NumberOfSections() {
		ds := DocumentSection{
			Header: s.dir.TitleForHeader(sec),
			Footer: s.dir.TitleForFooter(sec),
			Data:   sec == s.dir.DataSectionIndex(),
		}
		for row := range s.dir.NumberOfRows(sec) {
			c, ok := s.dir.CellForRow(director.IndexPath{Section: sec, Row: row}).(*listview.TextCell)
			if !ok {
				continue
			}
			ds.Rows = append(ds.Rows, DocumentRow{Title: c.Title, Detail: c.Detail, Badge: c.Badge})
		}
		doc.Sections = append(doc.Sections, ds)
	}
	return doc, nil
}

func withTerminalSize(cfg Config) Config {
	if cfg.Width > 0 && cfg.Height > 0 {
		return cfg
	}
	w, h := DetectTerminalSize()
	if cfg.Width <= 0 {
		cfg.Width = w
	}
	if cfg.Height <= 0 {
		cfg.Height = h
	}
	return cfg
}

// session wires one provider, director and list together.
type session struct {
	cfg      Config
	ctx      context.Context
	log      logr.Logger
	provider *sqlsource.Provider
	model    *listview.Model
	heights  *listview.PrototypeHeights
	dir      *director.Director[Record]

	// filter is the last filter that ran successfully.
	filter string
}

func newSession(ctx context.Context, cfg Config, interactive bool) (*session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if _, err := predicate.Compile(cfg.Filter); err != nil {
		return nil, fmt.Errorf("initial filter: %w", err)
	}
	th, err := cfg.theme()
	if err != nil {
		return nil, err
	}
	if cfg.RowKind == "" {
		cfg.RowKind = RowDetailed
	}
	if strings.TrimSpace(cfg.AppName) == "" {
		cfg.AppName = "listdirector"
	}

	s := &session{
		cfg:    cfg,
		ctx:    ctx,
		log:    cfg.Logger.WithName("tui"),
		filter: cfg.Filter,
	}
	s.model = listview.New(listview.Options{
		Width:     cfg.Width,
		Height:    cfg.Height,
		NoColor:   cfg.NoColor,
		Theme:     th,
		Title:     cfg.AppName,
		Filter:    s.applyFilter,
		Refresh:   s.refresh,
		CellKeys:  cfg.cellKeys(),
		AltScreen: interactive,
		Logger:    cfg.Logger,
	})
	s.provider = sqlsource.New(cfg.DB, sqlsource.Options{
		Query:       cfg.Query,
		Args:        cfg.Args,
		KeyColumn:   cfg.KeyColumn,
		GroupColumn: cfg.GroupColumn,
		Decode: func(r sqlsource.Record) (any, error) {
			return Record{Record: r, s: s}, nil
		},
		Queue:  s.model.Queue(),
		Logger: cfg.Logger,
	})
	s.provider.SetFilter(director.Predicate(cfg.Filter))

	s.heights = listview.NewPrototypeHeights(cfg.Width)

	s.dir = director.New(ctx, director.Config[Record]{
		Widget:         s.model,
		Provider:       s.provider,
		Queue:          s.model.Queue(),
		RowKind:        cfg.RowKind,
		Action:         s.selectAction,
		SectionsBefore: s.staticSections(cfg.SectionsBefore),
		SectionsAfter:  s.staticSections(cfg.SectionsAfter),
		DataChrome:     director.Chrome{HeaderTitle: cfg.DataHeader, FooterTitle: cfg.DataFooter},
		HeightStrategy: s.heights,
		Registerer:     s.heights,
		Logger:         cfg.Logger,
	})
	if err := s.provider.LastError(); err != nil {
		s.dir.Detach()
		return nil, fmt.Errorf("run query: %w", err)
	}
	s.model.Drain()
	if cfg.Filter != "" {
		s.model.SetStatus(fmt.Sprintf("filter: %s", cfg.Filter))
	}
	return s, nil
}

// applyFilter is the list's filter hook. A filter the provider rejects is
// rolled back so later refreshes keep working.
func (s *session) applyFilter(expr string, done func()) error {
	if _, err := predicate.Compile(expr); err != nil {
		return err
	}
	s.dir.RefreshFilter(s.ctx, director.Predicate(expr), func() {
		s.filter = expr
		if done != nil {
			done()
		}
	})
	if s.dir.State() == director.StateRefreshing {
		return nil
	}
	err := s.provider.LastError()
	s.provider.SetFilter(director.Predicate(s.filter))
	if err == nil {
		err = fmt.Errorf("filter %q was not applied", expr)
	}
	return err
}

func (s *session) refresh() {
	s.dir.Refresh(s.ctx)
	if err := s.provider.LastError(); err != nil {
		s.model.SetError(err)
	}
}

func (s *session) selectAction(r Record) func() {
	return func() {
		title := r.Title(s.cfg.Layout)
		if s.cfg.KeyColumn != "" {
			title = fmt.Sprintf("#%s %s", r.Key(s.cfg.KeyColumn), title)
		}
		s.model.SetStatus("selected " + title)
		s.log.V(1).Info("record selected", "key", r.Key(s.cfg.KeyColumn))
	}
}

// bindRecord adds the session's edit handlers to a data row.
func (s *session) bindRecord(row director.Row, r Record) director.Row {
	edits := []director.EditAction{{
		Title: "Copy title",
		Key:   "copy",
		Handler: func(director.ActionContext) any {
			s.copyText(r.Title(s.cfg.Layout))
			return nil
		},
	}}
	if s.cfg.KeyColumn == "" {
		return row.WithEditActions(edits...)
	}
	key := r.Get(s.cfg.KeyColumn)
	if s.cfg.DeleteStatement != "" {
		row = row.On(director.ActionClickDelete, func(director.ActionContext) any {
			s.exec("Delete", s.cfg.DeleteStatement, key)
			return nil
		})
	}
	for _, a := range s.cfg.Actions {
		h := func(director.ActionContext) any {
			s.exec(a.Title, a.Statement, key)
			return nil
		}
		row = row.On(director.CustomAction(a.Key), h)
		edits = append(edits, director.EditAction{Title: a.Title, Key: a.Key, Handler: h})
	}
	return row.WithEditActions(edits...)
}

// exec runs a row statement. The provider refreshes afterwards and the
// reload lands on the update loop.
func (s *session) exec(title, stmt string, key any) {
	res, err := s.provider.Exec(s.ctx, stmt, key)
	if err != nil {
		s.model.SetError(fmt.Errorf("%s: %w", strings.ToLower(title), err))
		return
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.model.SetStatus(strings.ToLower(title) + " done")
		return
	}
	s.model.SetStatus(fmt.Sprintf("%s: %d row(s)", strings.ToLower(title), n))
}

func (s *session) copyText(text string) {
	if err := CopyToClipboard(text); err != nil {
		s.model.SetError(fmt.Errorf("copy: %w", err))
		return
	}
	s.model.SetStatus("copied to clipboard")
}

func (s *session) staticSections(cfgs []SectionConfig) []director.Section {
	out := make([]director.Section, 0, len(cfgs))
	for _, sc := range cfgs {
		sec := director.Section{HeaderTitle: sc.Header, FooterTitle: sc.Footer}
		for _, r := range sc.Rows {
			sec.Rows = append(sec.Rows, s.staticRow(r))
		}
		out = append(out, sec)
	}
	return out
}

func (s *session) staticRow(sr StaticRow) director.Row {
	row := director.NewRow("static", func(c director.Cell) {
		if tc, ok := c.(*listview.TextCell); ok {
			tc.Title, tc.Detail = sr.Title, sr.Detail
		}
	}).WithHeight(sr.Height)

	switch {
	case sr.URL != "":
		return row.On(director.ActionSelect, func(director.ActionContext) any {
			if err := OpenURL(sr.URL); err != nil {
				s.model.SetError(fmt.Errorf("open %s: %w", sr.URL, err))
				return nil
			}
			s.model.SetStatus("opened " + sr.URL)
			return nil
		})
	case sr.Copy != "":
		return row.On(director.ActionSelect, func(director.ActionContext) any {
			s.copyText(sr.Copy)
			return nil
		})
	default:
		return row.On(director.ActionShouldHighlight, func(director.ActionContext) any {
			return false
		})
	}
}
