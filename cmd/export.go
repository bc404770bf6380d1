package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/oakwood-commons/listdirector/pkg/logger"
	"github.com/oakwood-commons/listdirector/pkg/tui"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [db]",
		Short: "Write every section of the list as Markdown, HTML or a tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			cfg.DB, cfg.Logger = db, lgr
			// Exports are independent of the terminal.
			cfg.Width, cfg.Height = 80, 24

			doc, err := tui.Collect(ctx, cfg)
			if err != nil {
				return err
			}
			var out []byte
			switch strings.ToLower(format) {
			case "markdown", "md":
				out = []byte(renderMarkdown(doc))
			case "html":
				out = renderHTML(doc)
			case "tree":
				out = []byte(renderTree(doc))
			default:
				return fmt.Errorf("unsupported format %q (use markdown, html or tree)", format)
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			lgr.Info("export written", "path", output, "bytes", len(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown, html or tree")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "CEL filter over r applied before export")
	return cmd
}

// renderMarkdown writes one heading per titled section and one list item per
// row.
func renderMarkdown(doc tui.Document) string {
	var b strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	}
	for _, s := range doc.Sections {
		if s.Header != "" {
			fmt.Fprintf(&b, "## %s\n\n", s.Header)
		}
		if s.Data && len(s.Rows) == 0 {
			b.WriteString("_No matching rows._\n\n")
		}
		for _, r := range s.Rows {
			fmt.Fprintf(&b, "- **%s**", escapeMarkdown(r.Title))
			if r.Badge != "" {
				fmt.Fprintf(&b, " `%s`", r.Badge)
			}
			b.WriteString("\n")
			for _, line := range strings.Split(r.Detail, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					fmt.Fprintf(&b, "  %s\n", escapeMarkdown(line))
				}
			}
		}
		if len(s.Rows) > 0 {
			b.WriteString("\n")
		}
		if s.Footer != "" {
			fmt.Fprintf(&b, "_%s_\n\n", escapeMarkdown(s.Footer))
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

func renderHTML(doc tui.Document) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	parsed := p.Parse([]byte(renderMarkdown(doc)))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.CompletePage,
		Title: doc.Title,
	})
	return markdown.Render(parsed, renderer)
}

// renderTree draws sections as branches and rows with details as sub-branches.
func renderTree(doc tui.Document) string {
	tree := treeprint.NewWithRoot(doc.Title)
	for _, s := range doc.Sections {
		name := s.Header
		if name == "" {
			name = "(untitled)"
		}
		branch := tree.AddBranch(name)
		if s.Data && len(s.Rows) == 0 {
			branch.AddNode("no matching rows")
		}
		for _, r := range s.Rows {
			label := r.Title
			if r.Badge != "" {
				label += " [" + r.Badge + "]"
			}
			var lines []string
			for _, line := range strings.Split(r.Detail, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			if len(lines) == 0 {
				branch.AddNode(label)
				continue
			}
			rb := branch.AddBranch(label)
			for _, line := range lines {
				rb.AddNode(line)
			}
		}
		if s.Footer != "" {
			branch.AddNode("footer: " + s.Footer)
		}
	}
	return tree.String()
}
