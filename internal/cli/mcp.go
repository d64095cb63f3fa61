package cli

import (
	"github.com/spf13/cobra"

	"github.com/tickerql/tickerql/internal/mcpserver"
)

func newMCPCommand(rt *runtime) *cobra.Command {
	var (
		maxRows     int
		allowIngest bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask_financials tool over MCP stdio",
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
			deps := mcpserver.Deps{
				Logger:   rt.logger,
				Answerer: answerer,
				Files:    backend.Files,
				CallerID: rt.cfg.AI.CallerID,
				MaxRows:  maxRows,
			}
			if allowIngest && backend.Ingester != nil {
				deps.Ingester = backend.Ingester
			}
			server, err := mcpserver.New(deps)
			if err != nil {
				return err
			}
			return server.ServeStdio()
		},
	}
	cmd.Flags().IntVar(&maxRows, "max-rows", 200, "maximum rows returned per answer (0 for no limit)")
	cmd.Flags().BoolVar(&allowIngest, "allow-ingest", false, "expose the ingest_financials tool")
	return cmd
}
