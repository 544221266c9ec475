package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graaaaa/vrcphoto-companion/internal/config"
)

func newConfigCommand(cctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigPathCommand())
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(cctx))

	return configCmd
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ConfigPath()
			if err != nil {
				return err
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(target, []byte(config.SampleConfig()), 0o600); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Port", fmt.Sprintf("%d", cfg.Port)},
				{"Log directory", cfg.ResolveLogDir()},
				{"Scan batch size", fmt.Sprintf("%d", cfg.ScanBatchSize)},
				{"Watch enabled", fmt.Sprintf("%t", cfg.WatchEnabled)},
				{"API auth", fmt.Sprintf("%t", cfg.AuthUser != "" && cfg.AuthPassword != "")},
			}
			for i, dir := range cfg.PhotoDirs {
				rows = append(rows, []string{fmt.Sprintf("Photo directory %d", i+1), dir})
			}
			table := renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
