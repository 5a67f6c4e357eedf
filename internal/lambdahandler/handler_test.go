package lambdahandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/payetl/pkg/payetl"
)

type call struct{ bucket, key string }

type fakeRunner struct {
	polls  int
	events []call
	fail   map[string]error
}

func (f *fakeRunner) RunPolling(ctx context.Context) (payetl.PollResult, error) {
	f.polls++
	return payetl.PollResult{OK: true}, nil
}

func (f *fakeRunner) RunEvent(ctx context.Context, bucket, key string) (payetl.EventResult, error) {
	f.events = append(f.events, call{bucket, key})
	if err := f.fail[key]; err != nil {
		return payetl.EventResult{}, err
	}
	return payetl.EventResult{OK: true, Ready: true, Date: key}, nil
}

func TestHandle_S3NotificationRunsEachRecord(t *testing.T) {
	payload := `{"Records":[
		{"eventSource":"aws:s3","eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"b1"},"object":{"key":"Paylocity/ccprov1_2026-02-05.xlsx"}}},
		{"eventSource":"aws:s3","eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"b1"},"object":{"key":"Pay+Data/Labor%20Summary_2026-02-05.xlsx"}}}
	]}`
	r := &fakeRunner{}

	out, err := New(r, nil).Handle(context.Background(), json.RawMessage(payload))
	require.NoError(t, err)

	assert.Equal(t, []call{
		{"b1", "Paylocity/ccprov1_2026-02-05.xlsx"},
		{"b1", "Pay Data/Labor Summary_2026-02-05.xlsx"},
	}, r.events)
	assert.Equal(t, 0, r.polls)

	res, ok := out.(payetl.EventResult)
	require.True(t, ok)
	assert.Equal(t, "Pay Data/Labor Summary_2026-02-05.xlsx", res.Date, "last record's result is returned")
}

func TestHandle_S3RecordFailureStops(t *testing.T) {
	payload := `{"Records":[
		{"s3":{"bucket":{"name":"b"},"object":{"key":"bad"}}},
		{"s3":{"bucket":{"name":"b"},"object":{"key":"good_2026-02-05.xlsx"}}}
	]}`
	r := &fakeRunner{fail: map[string]error{"bad": payetl.ErrMissingDateToken}}

	_, err := New(r, nil).Handle(context.Background(), json.RawMessage(payload))
	assert.ErrorIs(t, err, payetl.ErrMissingDateToken)
	assert.Len(t, r.events, 1)
}

func TestHandle_EventBridgeObjectCreated(t *testing.T) {
	payload := `{"version":"0","source":"aws.s3","detail-type":"Object Created",
		"detail":{"bucket":{"name":"eb"},"object":{"key":"Paylocity/ccstaff_2026-02-05.xlsx"}}}`
	r := &fakeRunner{}

	_, err := New(r, nil).Handle(context.Background(), json.RawMessage(payload))
	require.NoError(t, err)
	assert.Equal(t, []call{{"eb", "Paylocity/ccstaff_2026-02-05.xlsx"}}, r.events)
}

func TestHandle_ScheduleRunsPolling(t *testing.T) {
	for _, payload := range []string{
		`{"source":"aws.events","detail-type":"Scheduled Event","detail":{}}`,
		`{}`,
		`{"Records":[]}`,
	} {
		r := &fakeRunner{}
		out, err := New(r, nil).Handle(context.Background(), json.RawMessage(payload))
		require.NoError(t, err, payload)
		assert.Equal(t, 1, r.polls, payload)
		assert.Empty(t, r.events, payload)
		assert.IsType(t, payetl.PollResult{}, out)
	}
}

func TestHandle_BadEventBridgeDetail(t *testing.T) {
	payload := `{"source":"aws.s3","detail-type":"Object Created","detail":"oops"}`
	_, err := New(&fakeRunner{}, nil).Handle(context.Background(), json.RawMessage(payload))
	require.Error(t, err)
	assert.False(t, errors.Is(err, payetl.ErrMissingFiles))
}
