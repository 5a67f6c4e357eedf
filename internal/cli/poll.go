package cli

import (
	"github.com/spf13/cobra"
)

type runFlags struct {
	bucket string
	prefix string
}

func newPollCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Load the newest file of every category",
		Long: `Poll lists the configured bucket and prefix, picks the most recently
modified object for each of ccprov1, ccprov2, ccstaff and the labor summary,
then cleans and loads them. The result is printed as JSON on stdout.

Examples:
  payetl poll
  payetl poll --bucket payroll-drops --prefix Paylocity/ -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bucket") {
				cfg.Bucket = flags.bucket
			}
			if cmd.Flags().Changed("prefix") {
				cfg.Prefix = flags.prefix
			}

			ctx, cancel := a.signalContext()
			defer cancel()

			runner, err := a.newRunner(ctx, cfg, a.logger())
			if err != nil {
				return err
			}
			result, err := runner.RunPolling(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&flags.bucket, "bucket", "", "Source bucket (overrides S3_BUCKET)")
	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "Key prefix to scan (overrides S3_PREFIX)")
	return cmd
}
