package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	_ "modernc.org/sqlite"

	"github.com/oakwood-commons/listdirector/pkg/logger"
	"github.com/oakwood-commons/listdirector/pkg/settings"
	"github.com/oakwood-commons/listdirector/pkg/tui"
)

// rootOptions holds the flag values of one invocation.
type rootOptions struct {
	run *settings.Run

	configFile string
	debug      bool
	theme      string

	query    string
	key      string
	group    string
	title    string
	detail   []string
	badge    string
	filter   string
	rowKind  string
	watch    time.Duration
	snapshot bool
	width    int
	height   int
}

// NewRootCommand builds the CLI. Each call returns an independent command
// tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{run: settings.NewCliParams()}

	root := &cobra.Command{
		Use:   settings.CliBinaryName + " [db]",
		Short: "Browse a SQLite query as a live sectioned list",
		Long: "listdirector shows the result of a SQL query as a sectioned list in the terminal.\n" +
			"Static sections from the config surround the data section, which follows the\n" +
			"database as rows change. Press / to filter with a CEL expression over r.",
		Example: "\n  listdirector init demo.db\n  listdirector demo.db\n  listdirector demo.db --filter 'r.status == \"open\"'\n  listdirector demo.db --snapshot --width 80 --height 20\n",
		Args:    cobra.MaximumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogger(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, opts, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       cliVersionString(),
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "path to a YAML or TOML config file")
	pf.BoolVar(&opts.debug, "debug", false, "log at debug level")
	pf.StringVar(&opts.run.LogFile, "log-file", "", "write logs to this file (interactive runs log nowhere otherwise)")
	pf.BoolVar(&opts.run.NoColor, "no-color", false, "disable color output")

	f := root.Flags()
	f.StringVar(&opts.query, "query", "", "SQL SELECT to browse (default from config)")
	f.StringVar(&opts.key, "key", "", "column identifying rows across refreshes")
	f.StringVar(&opts.group, "group", "", "column whose runs of equal values form result groups")
	f.StringVar(&opts.title, "title", "", "column shown as the row title")
	f.StringSliceVar(&opts.detail, "detail", nil, "columns shown under the title")
	f.StringVar(&opts.badge, "badge", "", "column shown right-aligned on the title line")
	f.StringVar(&opts.filter, "filter", "", "initial CEL filter over r, e.g. 'r.priority > 2'")
	f.StringVar(&opts.rowKind, "row-kind", "", "row layout: compact or detailed")
	f.DurationVar(&opts.watch, "watch", 0, "poll the database for outside changes at this interval (0 disables)")
	f.BoolVar(&opts.snapshot, "snapshot", false, "render one screen and exit")
	f.IntVar(&opts.width, "width", 0, "width in columns (default: terminal width)")
	f.IntVar(&opts.height, "height", 0, "height in rows (default: terminal height)")
	f.StringVar(&opts.theme, "theme", "", "theme name (default from config; see 'listdirector themes')")

	root.AddCommand(
		newInitCommand(opts),
		newExportCommand(opts),
		newConfigCommand(opts),
		newThemesCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// setupLogger maps --debug to zap level -1. Interactive runs own the
// terminal, so their logs go to --log-file or nowhere.
func setupLogger(cmd *cobra.Command, opts *rootOptions) {
	if opts.debug {
		opts.run.MinLogLevel = -1
	}
	var out io.Writer = cmd.ErrOrStderr()
	if opts.run.LogFile != "" {
		if f, err := os.OpenFile(opts.run.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: cannot open log file: %v\n", err)
		}
	} else if cmd.Name() == settings.CliBinaryName && !opts.snapshot {
		out = io.Discard
	}
	lgr := logger.Setup(logger.Options{Level: opts.run.MinLogLevel, Output: out})
	lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, lgr)
	cmd.SetContext(settings.IntoContext(ctx, opts.run))
}

func runBrowse(cmd *cobra.Command, opts *rootOptions, args []string) error {
	ctx := cmd.Context()
	lgr := *logger.FromContext(ctx)

	db, err := openDB(ctx, args, lgr)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := buildTUIConfig(cmd.Flags(), opts)
	if err != nil {
		return err
	}
	cfg.DB = db
	cfg.Logger = lgr

	if opts.snapshot {
		out, err := tui.RenderSnapshot(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	return tui.Run(ctx, cfg, tui.WithIO(cmd.InOrStdin(), cmd.OutOrStdout())...)
}

// openDB opens the database named by args, or the default path.
func openDB(ctx context.Context, args []string, lgr logr.Logger) (*sql.DB, error) {
	path := settings.DefaultDatabase
	if run, ok := settings.FromContext(ctx); ok && run.Database != "" {
		path = run.Database
	}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		path = args[0]
	}
	if run, ok := settings.FromContext(ctx); ok {
		run.Database = path
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	lgr.V(1).Info("database opened", logger.DatabaseKey, path)
	return db, nil
}

// buildTUIConfig merges the config file with the flags the user set.
func buildTUIConfig(flags *pflag.FlagSet, opts *rootOptions) (tui.Config, error) {
	fc, err := loadMergedConfig(resolveConfigPath(opts.configFile))
	if err != nil {
		return tui.Config{}, err
	}
	if flags.Changed("query") {
		fc.Query.SQL = opts.query
		// A custom query rarely fits the demo layout and statements.
		fc.Query.Layout = tui.Layout{}
		fc.Query.Delete = ""
		fc.Query.Actions = nil
		fc.Query.Key = ""
	}
	if flags.Changed("key") {
		fc.Query.Key = opts.key
	}
	if flags.Changed("group") {
		fc.Query.Group = opts.group
	}
	if flags.Changed("filter") {
		fc.Query.Filter = opts.filter
	}
	if flags.Changed("row-kind") {
		fc.Query.RowKind = opts.rowKind
	}
	if flags.Changed("title") {
		fc.Query.Layout.TitleColumn = opts.title
	}
	if flags.Changed("detail") {
		fc.Query.Layout.DetailColumns = opts.detail
	}
	if flags.Changed("badge") {
		fc.Query.Layout.BadgeColumn = opts.badge
	}
	if flags.Changed("theme") {
		fc.App.Theme = opts.theme
	}
	if flags.Changed("watch") {
		fc.App.Watch = opts.watch.String()
	}

	cfg, err := fc.tuiConfig()
	if err != nil {
		return cfg, err
	}
	cfg.Width, cfg.Height = opts.width, opts.height
	cfg.NoColor = opts.run.NoColor || os.Getenv("NO_COLOR") != ""
	opts.run.WatchInterval = cfg.WatchInterval
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the listdirector version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
			return nil
		},
	}
}

// cliVersionString builds the version line for `version` and --version.
func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}
