package cli

import (
	"github.com/spf13/cobra"
)

func newEventCmd(a *app) *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "event <key>",
		Short: "Process the date embedded in an object key",
		Long: `Event behaves like the S3 trigger: it takes the YYYY-MM-DD date from key,
checks the completion marker and the four files expected for that date, and
loads them once all are present. Not ready and already processed are
reported in the JSON result, not as errors.

Examples:
  payetl event Paylocity/ccprov1_2026-02-05.xlsx
  payetl event Paylocity/ccstaff_2026-02-05.xlsx --bucket payroll-drops`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bucket") {
				cfg.Bucket = bucket
			}

			ctx, cancel := a.signalContext()
			defer cancel()

			runner, err := a.newRunner(ctx, cfg, a.logger())
			if err != nil {
				return err
			}
			result, err := runner.RunEvent(ctx, cfg.Bucket, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket holding the key (overrides S3_BUCKET)")
	return cmd
}
