package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
)

func newImportCommand(cctx *commandContext) *cobra.Command {
	var noRebuildFlag bool

	cmd := &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Merge exported ledger files into the local ledger",
		Long: `Merges lines from exported ledger files into the local ledger. Duplicate
lines are skipped, so importing the same export twice is harmless. After the
merge the derived database is rebuilt from the full ledger unless
--no-rebuild is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectImportPaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no ledger files found in arguments")
			}

			e, err := cctx.openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			appended, err := e.ledger.ImportFiles(cmd.Context(), paths)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new lines from %d files\n", appended, len(paths))

			if noRebuildFlag {
				return nil
			}

			res, err := e.syncer.Sync(cmd.Context(), ingest.ModeFull)
			if err != nil {
				return fmt.Errorf("rebuild after import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d sessions and %d player events\n",
				res.SessionsCreated, res.PlayerEventsInserted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRebuildFlag, "no-rebuild", false, "Skip rebuilding the derived database after import")

	return cmd
}

// collectImportPaths expands directory arguments into their .txt files.
func collectImportPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.txt"))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
