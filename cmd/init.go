package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/listdirector/internal/schema"
	"github.com/oakwood-commons/listdirector/pkg/logger"
)

func newInitCommand(_ *rootOptions) *cobra.Command {
	var noSeed bool
	cmd := &cobra.Command{
		Use:   "init [db]",
		Short: "Create or upgrade a demo task database",
		Long: "init applies the embedded schema migrations to the database and, unless\n" +
			"--no-seed is given, inserts a handful of demo tasks into an empty tasks table.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lgr := *logger.FromContext(ctx)

			db, err := openDB(ctx, args, lgr)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := schema.Migrate(db, lgr); err != nil {
				return err
			}
			inserted := 0
			if !noSeed {
				if inserted, err = schema.Seed(ctx, db); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database ready, %d demo tasks inserted\n", inserted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "only apply migrations")
	return cmd
}
