package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/payetl/pkg/payetl"
)

type fakeS3 struct {
	pages   [][]types.Object
	calls   int
	headErr error
	getBody string
	getErr  error
	putErr  error
	putIn   *s3.PutObjectInput
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := f.pages[f.calls]
	f.calls++
	out := &s3.ListObjectsV2Output{Contents: page}
	if f.calls < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.getBody))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putIn = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_ListWalksAllPages(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeS3{pages: [][]types.Object{
		{{Key: aws.String("a.xlsx"), LastModified: aws.Time(ts), Size: aws.Int64(10)}},
		{{Key: aws.String("b.xlsx"), LastModified: aws.Time(ts.Add(time.Hour)), Size: aws.Int64(20)}},
	}}
	s := NewS3StoreWithClient(fake)

	var got []payetl.ObjectInfo
	err := s.List(context.Background(), "bucket", "", func(o payetl.ObjectInfo) error {
		got = append(got, o)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.xlsx", got[0].Key)
	assert.Equal(t, int64(20), got[1].Size)
	assert.Equal(t, ts.Add(time.Hour), got[1].LastModified)
	assert.Equal(t, 2, fake.calls)
}

func TestS3Store_ListStopsOnCallbackError(t *testing.T) {
	fake := &fakeS3{pages: [][]types.Object{{{Key: aws.String("a")}, {Key: aws.String("b")}}}}
	stop := errors.New("stop")
	n := 0
	err := NewS3StoreWithClient(fake).List(context.Background(), "b", "", func(payetl.ObjectInfo) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestS3Store_Exists(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{"present", nil, true, false},
		{"typed not found", &types.NotFound{}, false, false},
		{"api code not found", &smithy.GenericAPIError{Code: "NotFound"}, false, false},
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, false, false},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewS3StoreWithClient(&fakeS3{headErr: tt.err})
			got, err := s.Exists(context.Background(), "b", "k")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3Store_Download(t *testing.T) {
	dir := t.TempDir()
	s := NewS3StoreWithClient(&fakeS3{getBody: "payload"})

	dest := filepath.Join(dir, "sub", "file.xlsx")
	require.NoError(t, s.Download(context.Background(), "b", "in/file.xlsx", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestS3Store_DownloadErrorLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	s := NewS3StoreWithClient(&fakeS3{getErr: errors.New("boom")})

	dest := filepath.Join(dir, "file.xlsx")
	err := s.Download(context.Background(), "b", "file.xlsx", dest)
	assert.ErrorContains(t, err, "boom")
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestS3Store_PutIfAbsent(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3StoreWithClient(fake)
	require.NoError(t, s.PutIfAbsent(context.Background(), "b", "_DONE_2024-03-01.txt", []byte("x")))
	require.NotNil(t, fake.putIn)
	assert.Equal(t, "*", aws.ToString(fake.putIn.IfNoneMatch))
	assert.Equal(t, "_DONE_2024-03-01.txt", aws.ToString(fake.putIn.Key))

	fake.putErr = &smithy.GenericAPIError{Code: "PreconditionFailed"}
	err := s.PutIfAbsent(context.Background(), "b", "k", nil)
	assert.ErrorIs(t, err, payetl.ErrMarkerExists)

	fake.putErr = errors.New("network down")
	err = s.PutIfAbsent(context.Background(), "b", "k", nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, payetl.ErrMarkerExists)
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp", "ccprov1_2024-03-01.xlsx"), LocalPath("/tmp", "incoming/ccprov1_2024-03-01.xlsx"))
	assert.Equal(t, filepath.Join("/tmp", "x.xls"), LocalPath("/tmp", "x.xls"))
}
