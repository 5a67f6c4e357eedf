package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/payetl/internal/cleaner"
	"github.com/vvka-141/payetl/pkg/payetl"
)

type cleanFlagValues struct {
	provider []string
	staff    []string
	out      string
	skipRows int
}

func newCleanCmd(a *app) *cobra.Command {
	var flags cleanFlagValues

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean local provider and staff exports into CSV",
		Long: `Clean runs only the cleaning stage on local files. No bucket or database is
needed. Provider files are concatenated in the order given, and so are staff
files.

Examples:
  payetl clean --provider ccprov1.xlsx --provider ccprov2.xlsx \
    --staff ccstaff.xlsx --out ./cleaned`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("skip-rows") {
				cfg.HeaderSkipRows = flags.skipRows
			}
			if flags.out != "" {
				cfg.ScratchDir = flags.out
			}
			if err := cfg.ValidateCleaning(); err != nil {
				return err
			}

			c := cleaner.New(cfg.ScratchDir, a.logger())
			c.SkipRows = cfg.HeaderSkipRows

			providerCSV, staffCSV, err := c.CleanProviderAndStaff(flags.provider, flags.staff)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), providerCSV)
			fmt.Fprintln(cmd.OutOrStdout(), staffCSV)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&flags.provider, "provider", nil, "Provider export (.xls/.xlsx), repeatable")
	cmd.Flags().StringSliceVar(&flags.staff, "staff", nil, "Staff export (.xls/.xlsx), repeatable")
	cmd.Flags().StringVar(&flags.out, "out", "", "Output directory (default: SCRATCH_DIR)")
	cmd.Flags().IntVar(&flags.skipRows, "skip-rows", payetl.DefaultHeaderSkipRows, "Rows above the header row")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("staff")
	return cmd
}
