package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vvka-141/payetl/internal/config"
	"github.com/vvka-141/payetl/internal/lambdahandler"
	"github.com/vvka-141/payetl/internal/logging"
	"github.com/vvka-141/payetl/internal/pipeline"
	"github.com/vvka-141/payetl/pkg/payetl"
)

func main() {
	logger := logging.NewConsoleLogger(os.Getenv("PAYETL_VERBOSE") == "1")

	cfg, err := config.Load(os.Getenv("PAYETL_CONFIG"))
	if err != nil {
		logger.Error("%v", err)
		os.Exit(payetl.ExitCodeForError(err))
	}

	p, err := pipeline.FromConfig(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(payetl.ExitCodeForError(err))
	}
	logger.Info("Configured for s3://%s/%s", cfg.Bucket, cfg.Prefix)

	lambda.Start(lambdahandler.New(p, logger).Handle)
}
