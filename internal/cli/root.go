// Package cli implements the payetl command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vvka-141/payetl/internal/config"
	"github.com/vvka-141/payetl/internal/logging"
	"github.com/vvka-141/payetl/internal/pipeline"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// Runner is what poll and event drive.
type Runner interface {
	RunPolling(ctx context.Context) (payetl.PollResult, error)
	RunEvent(ctx context.Context, bucket, key string) (payetl.EventResult, error)
}

// RunnerFactory builds a Runner from the resolved configuration.
type RunnerFactory func(ctx context.Context, cfg *config.Config, logger payetl.Logger) (Runner, error)

func defaultRunner(ctx context.Context, cfg *config.Config, logger payetl.Logger) (Runner, error) {
	return pipeline.FromConfig(ctx, cfg, logger)
}

// app carries what the subcommands share.
type app struct {
	verbose    bool
	configPath string
	newRunner  RunnerFactory
	stderr     io.Writer
}

const longDescription = `payetl loads payroll export spreadsheets from S3 into the PostgreSQL warehouse.

It picks the source files (the newest per category, or the set expected for
the date in a triggering key), strips the title region and the redundant
third column from the charge exports, and replaces the contents of
app.clinic_ccprov, app.clinic_ccstaff and app.clinic_labor_costs.

Configuration is read from payetl.yaml (or --config), .env and the
environment. Flags override everything.

Exit Codes:
  0  - Success (including not ready and already processed)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - Required source files missing
  13 - Source format error (header mismatch, date token, no data)
  14 - Loading into the warehouse failed`

// NewRootCmd builds the command tree. factory may be nil.
func NewRootCmd(factory RunnerFactory) *cobra.Command {
	if factory == nil {
		factory = defaultRunner
	}
	a := &app{newRunner: factory, stderr: os.Stderr}

	root := &cobra.Command{
		Use:          "payetl",
		Short:        "Payroll spreadsheet ETL into PostgreSQL",
		Long:         longDescription,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.stderr = cmd.ErrOrStderr()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output for all commands")
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Path to a YAML config file (default: ./"+config.ConfigFileName+" if present)")

	root.AddCommand(
		newPollCmd(a),
		newEventCmd(a),
		newCleanCmd(a),
		newSchemaCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return NewRootCmd(nil).Execute()
}

func (a *app) logger() *logging.ConsoleLogger {
	return logging.NewConsoleLoggerTo(a.stderr, a.verbose)
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.Load(a.configPath)
}

// signalContext is cancelled on Ctrl+C or SIGTERM. The run timeout is
// applied by the pipeline itself.
func (a *app) signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(a.stderr, "\n[INTERRUPT] Received interrupt signal, cancelling run...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// printJSON writes v as indented JSON, the machine-readable result of a run.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
