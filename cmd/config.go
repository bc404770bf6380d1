package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/listdirector/internal/ui/listview"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the merged configuration",
		Long: "config prints the embedded defaults merged with the config file\n" +
			"(--config, else $XDG_CONFIG_HOME/listdirector/config.yaml). Use -o toml to\n" +
			"get a starting point for a TOML config.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := loadMergedConfig(resolveConfigPath(opts.configFile))
			if err != nil {
				return err
			}
			out, err := marshalConfig(fc, output)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "yaml or toml")
	return cmd
}

func newThemesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := loadMergedConfig(resolveConfigPath(opts.configFile))
			if err != nil {
				return err
			}
			names := listview.ThemeNames()
			for _, n := range fc.themeNames() {
				if !slices.Contains(names, n) {
					names = append(names, n)
				}
			}
			current := strings.ToLower(fc.App.Theme)
			for _, n := range names {
				marker := " "
				if n == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, n)
			}
			return nil
		},
	}
}

