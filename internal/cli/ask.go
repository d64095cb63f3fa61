package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand(rt *runtime) *cobra.Command {
	var (
		asJSON  bool
		showSQL bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate a question to SQL and print the result",
		Example: `  tickerql ask "Which companies had the highest net income last quarter?"
  tickerql ask --json "Average gross profit by ticker"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			answerer, err := backend.requireAnswerer()
			if err != nil {
				return err
			}
			answer, err := answerer.Process(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				return writeAnswerJSON(cmd.OutOrStdout(), answer)
			}
			return renderAnswer(cmd.OutOrStdout(), answer, showSQL)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the SQL and rows as JSON")
	cmd.Flags().BoolVar(&showSQL, "show-sql", true, "print the generated SQL above the table")
	return cmd
}
