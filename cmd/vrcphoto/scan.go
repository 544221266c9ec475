package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newScanCommand(cctx *commandContext) *cobra.Command {
	var validateFlag bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan photo directories and index screenshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := cctx.openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.indexer.Scan(cmd.Context(), e.cfg.PhotoDirs)
			if err != nil {
				return err
			}

			removed := 0
			if validateFlag {
				removed, err = e.indexer.Validate(cmd.Context())
				if err != nil {
					return err
				}
			}

			rows := [][]string{
				{"Files seen", strconv.Itoa(res.FilesSeen)},
				{"Indexed", strconv.Itoa(res.Upserted)},
			}
			if validateFlag {
				rows = append(rows, []string{"Removed", strconv.Itoa(removed)})
			}
			table := renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(cmd.OutOrStdout(), table)

			if len(res.MissingRoots) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Missing directories: %s\n", strings.Join(res.MissingRoots, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&validateFlag, "validate", false, "Remove index entries for files that no longer exist")

	return cmd
}
