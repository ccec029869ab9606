package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aleister1102/hostbackoff/internal/backoff"
	"github.com/aleister1102/hostbackoff/internal/history"
	"github.com/aleister1102/hostbackoff/internal/httpclient"
	"github.com/spf13/cobra"
)

type fetchOptions struct {
	method      string
	data        string
	headers     []string
	historyPath string
	include     bool
}

func newFetchCommand(root *rootOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Execute a request, backing off while the host throttles it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.method, "request", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "Request body")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	cmd.Flags().StringVar(&opts.historyPath, "history", "", "Record the outcome in this SQLite journal (overrides history_config)")
	cmd.Flags().BoolVarP(&opts.include, "include", "i", false, "Print response headers")
	return cmd
}

func runFetch(cmd *cobra.Command, root *rootOptions, opts *fetchOptions, rawURL string) error {
	a, err := loadApp(root)
	if err != nil {
		return err
	}

	headers, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}

	rules, err := backoff.NewRules(a.cfg.BackoffConfig)
	if err != nil {
		return err
	}

	builder := httpclient.NewHTTPClientBuilder(a.logger).
		WithConfig(httpclient.FromConfig(a.cfg.HTTPClientConfig)).
		WithRules(rules)

	if path := journalPath(a, opts.historyPath); path != "" {
		journal, err := history.NewDB(path, a.logger)
		if err != nil {
			return err
		}
		defer journal.Close()
		builder = builder.WithObserver(journal)
	}

	client, err := builder.Build()
	if err != nil {
		return err
	}

	req, err := client.NewRequest(cmd.Context(), strings.ToUpper(opts.method), rawURL, []byte(opts.data), headers)
	if err != nil {
		return err
	}

	resp, err := client.ExecuteWithBackoff(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
	if opts.include {
		if err := resp.Header.Write(out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// journalPath picks the history database: the flag first, then an enabled history_config.
func journalPath(a *app, flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if a.cfg.HistoryConfig.Enabled {
		return a.cfg.HistoryConfig.SQLiteDBPath
	}
	return ""
}

// parseHeaders turns "Name: value" flags into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}
