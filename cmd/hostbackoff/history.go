package main

import (
	"fmt"
	"strconv"

	"github.com/aleister1102/hostbackoff/internal/history"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	path       string
	limit      int
	host       string
	policy     string
	failedOnly bool
}

func newHistoryCommand(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent backoff outcomes from the SQLite journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.path, "history", "", "SQLite journal path (defaults to history_config.sqlite_db_path)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum rows to show (defaults to history_config.list_limit)")
	cmd.Flags().StringVar(&opts.host, "host", "", "Only show this host")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "Only show this policy (twitch, google, youtube, other)")
	cmd.Flags().BoolVar(&opts.failedOnly, "failed", false, "Only show failed calls")
	return cmd
}

func runHistory(cmd *cobra.Command, root *rootOptions, opts *historyOptions) error {
	a, err := loadApp(root)
	if err != nil {
		return err
	}

	path := opts.path
	if path == "" {
		path = a.cfg.HistoryConfig.SQLiteDBPath
	}
	limit := opts.limit
	if limit <= 0 {
		limit = a.cfg.HistoryConfig.ListLimit
	}

	db, err := history.NewDB(path, a.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.QueryOutcomes(cmd.Context(), history.Filter{
		Host:       opts.host,
		Policy:     opts.policy,
		FailedOnly: opts.failedOnly,
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Started", "Method", "URL", "Policy", "Attempts", "Waited", "Status", "Error"})
	table.SetAutoWrapText(false)
	for _, e := range entries {
		table.Append([]string{
			e.StartedAt.Format("2006-01-02 15:04:05"),
			e.Method,
			e.URL,
			e.Policy,
			strconv.Itoa(e.Attempts),
			e.Waited.String(),
			strconv.Itoa(e.StatusCode),
			e.Error.String,
		})
	}
	table.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%d outcome(s)\n", len(entries))
	return nil
}
