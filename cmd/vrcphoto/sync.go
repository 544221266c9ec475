package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
)

func newSyncCommand(cctx *commandContext) *cobra.Command {
	var fullFlag bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Ingest VRChat logs into the local store",
		Long: `Reads the VRChat log directory, appends new lines to the durable
ledger, and updates the derived session database. With --full the derived
database is rebuilt from the ledger instead of applying only new lines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := cctx.openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			mode := ingest.ModeIncremental
			if fullFlag {
				mode = ingest.ModeFull
			}

			res, err := e.syncer.Sync(cmd.Context(), mode)
			if err != nil {
				if errors.Is(err, ingest.ErrSyncInFlight) {
					return fmt.Errorf("a sync is already running")
				}
				return err
			}

			rows := [][]string{
				{"Mode", res.Mode},
				{"Files scanned", strconv.Itoa(res.FilesScanned)},
				{"Lines seen", strconv.Itoa(res.LinesSeen)},
				{"Lines appended", strconv.Itoa(res.LinesAppended)},
				{"Sessions created", strconv.Itoa(res.SessionsCreated)},
				{"Player events", strconv.Itoa(res.PlayerEventsInserted)},
				{"Errors", strconv.Itoa(res.ReconcileErrors)},
				{"Duration", res.Duration.String()},
			}
			table := renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fullFlag, "full", false, "Rebuild the derived database from the ledger")

	return cmd
}
