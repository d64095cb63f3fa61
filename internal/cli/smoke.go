package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tickerql/tickerql/internal/ingest"
)

const smokeQuestion = "What AI stocks have the highest revenue"

func newSmokeCommand(rt *runtime) *cobra.Command {
	var skipIngest bool
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Ingest the tickers file, then ask a sample question",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			answerer, err := backend.requireAnswerer()
			if err != nil {
				return err
			}
			if !skipIngest {
				ingester, err := backend.requireIngester()
				if err != nil {
					return err
				}
				summary, err := ingester.RunTickersFile(cmd.Context(), ingest.TriggerManual)
				if summary.RunID != "" {
					renderSummary(cmd.OutOrStdout(), summary)
				}
				if err != nil && summary.Succeeded == 0 {
					return err
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", smokeQuestion)
			answer, err := answerer.Process(cmd.Context(), smokeQuestion)
			if err != nil {
				return err
			}
			return renderAnswer(cmd.OutOrStdout(), answer, true)
		},
	}
	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "ask against the statements already stored")
	return cmd
}
