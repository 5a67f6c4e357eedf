package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/payetl/internal/db"
	"github.com/vvka-141/payetl/internal/loader"
)

func newSchemaCmd(a *app) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print or apply the reference warehouse DDL",
		Long: `Schema prints the CREATE statements for the three destination tables.
With --apply it connects using DB_CREDENTIALS or DATABASE_URL and creates
whatever is missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !apply {
				fmt.Fprint(cmd.OutOrStdout(), loader.SchemaSQL())
				return nil
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			connConfig, err := db.ResolveConnection(cfg)
			if err != nil {
				return err
			}
			connector, err := db.NewConnector(connConfig)
			if err != nil {
				return err
			}

			ctx, cancel := a.signalContext()
			defer cancel()

			pool, err := connector.Connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := loader.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			a.logger().Info("Schema is in place on %s/%s", connConfig.Host, connConfig.Database)
			return nil
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Create the schema in the configured database")
	return cmd
}
