// Package lambdahandler adapts Lambda invocations to pipeline runs.
//
// S3 object-created notifications run the event variant once per record.
// EventBridge "Object Created" events from S3 do the same for their single
// object. Any other payload, typically a scheduled EventBridge tick, runs
// the polling variant.
package lambdahandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/vvka-141/payetl/internal/logging"
	"github.com/vvka-141/payetl/pkg/payetl"
)

// Runner is the part of the pipeline the handler drives.
type Runner interface {
	RunPolling(ctx context.Context) (payetl.PollResult, error)
	RunEvent(ctx context.Context, bucket, key string) (payetl.EventResult, error)
}

// Handler adapts Lambda invocations to pipeline runs. S3 notifications drive
// the event variant; any other payload is a schedule tick.
type Handler struct {
	runner Runner
	logger payetl.Logger
}

// New returns a Handler for runner. A nil logger discards output.
func New(runner Runner, logger payetl.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Handler{runner: runner, logger: logger}
}

// eventBridgeS3Detail is the detail of an EventBridge "Object Created" event.
type eventBridgeS3Detail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key string `json:"key"`
	} `json:"object"`
}

// Handle is the Lambda entry point.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		h.logger.Verbose("Invoked %s (version %s), request %s", lambdacontext.FunctionName, lambdacontext.FunctionVersion, lc.AwsRequestID)
	}

	var s3Event events.S3Event
	if err := json.Unmarshal(payload, &s3Event); err == nil && len(s3Event.Records) > 0 && s3Event.Records[0].S3.Object.Key != "" {
		return h.handleS3(ctx, s3Event)
	}

	var cwEvent events.CloudWatchEvent
	if err := json.Unmarshal(payload, &cwEvent); err == nil && cwEvent.Source == "aws.s3" && cwEvent.DetailType == "Object Created" {
		var detail eventBridgeS3Detail
		if err := json.Unmarshal(cwEvent.Detail, &detail); err != nil {
			return nil, fmt.Errorf("failed to decode S3 event detail: %w", err)
		}
		h.logger.Info("EventBridge object created: s3://%s/%s", detail.Bucket.Name, detail.Object.Key)
		return h.runner.RunEvent(ctx, detail.Bucket.Name, detail.Object.Key)
	}

	if cwEvent.DetailType != "" {
		h.logger.Info("Scheduled run (%s)", cwEvent.DetailType)
	} else {
		h.logger.Info("Scheduled run")
	}
	return h.runner.RunPolling(ctx)
}

// handleS3 runs every record in order and returns the last result. The first
// failure stops the invocation.
func (h *Handler) handleS3(ctx context.Context, ev events.S3Event) (payetl.EventResult, error) {
	var last payetl.EventResult
	for i, rec := range ev.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return last, fmt.Errorf("record %d: invalid object key %q: %w", i, rec.S3.Object.Key, err)
		}
		h.logger.Info("S3 %s: s3://%s/%s", rec.EventName, rec.S3.Bucket.Name, key)

		last, err = h.runner.RunEvent(ctx, rec.S3.Bucket.Name, key)
		if err != nil {
			return last, err
		}
	}
	return last, nil
}
