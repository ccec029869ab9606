package main

import (
	"fmt"
	"net/http"

	"github.com/aleister1102/hostbackoff/internal/backoff"
	"github.com/spf13/cobra"
)

func newClassifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>...",
		Short: "Print the backoff policy for each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			rules, err := backoff.NewRules(a.cfg.BackoffConfig)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, rawURL := range args {
				req, err := http.NewRequest(http.MethodGet, rawURL, nil)
				if err != nil {
					return fmt.Errorf("invalid URL %q: %w", rawURL, err)
				}
				policy := rules.Classify(req)
				fmt.Fprintf(out, "%s\t%s\tmax_attempts=%d\n", rawURL, policy, rules.MaxAttempts(policy))
			}
			return nil
		},
	}
}
