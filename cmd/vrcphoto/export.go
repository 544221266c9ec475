package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCommand(cctx *commandContext) *cobra.Command {
	var (
		outFlag   string
		sinceFlag string
		untilFlag string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy ledger partition files to a directory",
		Long: `Copies the raw month-partitioned ledger files to the output directory.
The exported files are plain text and can be re-imported on another machine
with the import command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := parseWindowFlags(sinceFlag, untilFlag)
			if err != nil {
				return err
			}

			e, err := cctx.openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			files, err := e.ledger.PartitionFiles(w.Since, w.Until)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No ledger partitions in range")
				return nil
			}

			if err := os.MkdirAll(outFlag, 0o700); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			for _, src := range files {
				dst := filepath.Join(outFlag, filepath.Base(src))
				if err := copyFile(src, dst); err != nil {
					return fmt.Errorf("export %s: %w", filepath.Base(src), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", filepath.Base(src))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outFlag, "out", "", "Output directory")
	cmd.Flags().StringVar(&sinceFlag, "since", "", "Window start (RFC 3339)")
	cmd.Flags().StringVar(&untilFlag, "until", "", "Window end (RFC 3339)")
	cmd.MarkFlagRequired("out")

	return cmd
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
