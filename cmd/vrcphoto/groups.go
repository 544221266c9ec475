package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/graaaaa/vrcphoto-companion/internal/query"
)

func newGroupsCommand(cctx *commandContext) *cobra.Command {
	var (
		sinceFlag  string
		untilFlag  string
		limitFlag  int
		cursorFlag string
		jsonFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show photos grouped by world session",
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

			if jsonFlag {
				groups, err := e.queries.ListAllPhotoGroups(cmd.Context(), w)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"groups": groups})
			}

			page, err := e.queries.ListPhotoGroups(cmd.Context(), w, query.Pagination{
				Limit:  limitFlag,
				Cursor: cursorFlag,
			})
			if err != nil {
				return err
			}

			if len(page.Groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions or photos found")
				return nil
			}

			rows := make([][]string, 0, len(page.Groups))
			for _, g := range page.Groups {
				world := "(ungrouped)"
				joined := ""
				instance := ""
				if g.Session != nil {
					world = g.Session.WorldID
					if g.Session.WorldName != nil {
						world = *g.Session.WorldName
					}
					joined = g.Session.JoinTs.Local().Format("2006-01-02 15:04:05")
					instance = g.Session.InstanceID
				}
				rows = append(rows, []string{
					joined,
					world,
					instance,
					strconv.Itoa(len(g.Photos)),
				})
			}
			table := renderTable(
				[]string{"Joined", "World", "Instance", "Photos"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)

			if page.NextCursor != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Next page: --cursor %s\n", *page.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sinceFlag, "since", "", "Window start (RFC 3339)")
	cmd.Flags().StringVar(&untilFlag, "until", "", "Window end (RFC 3339)")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Sessions per page")
	cmd.Flags().StringVar(&cursorFlag, "cursor", "", "Pagination cursor from a previous page")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the full window as JSON (ignores --limit and --cursor)")

	return cmd
}

func parseWindowFlags(since, until string) (query.Window, error) {
	var w query.Window
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return w, fmt.Errorf("invalid --since %q: %w", since, err)
		}
		w.Since = t
	}
	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return w, fmt.Errorf("invalid --until %q: %w", until, err)
		}
		w.Until = t
	}
	return w, nil
}
