package cli

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tickerql/tickerql/internal/nl2sql"
)

func newSchemaCommand(_ *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the columns of the quarterly statements table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc := nl2sql.DefaultDescriptor()
			data := pterm.TableData{{"column", "type"}}
			for _, field := range desc.Fields {
				data = append(data, []string{field.Name, string(field.Type)})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return fmt.Errorf("render schema table: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n\n%s\n", desc.Table.Qualified(), desc.Dialect, table)
			return nil
		},
	}
}
