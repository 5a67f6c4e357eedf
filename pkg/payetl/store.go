package payetl

import "context"

// ObjectStore is the subset of object storage the pipeline depends on.
type ObjectStore interface {
	// List walks every object under prefix, following pagination, and calls
	// fn for each one in listing order. Returning an error from fn stops the walk.
	List(ctx context.Context, bucket, prefix string, fn func(ObjectInfo) error) error

	// Exists probes a single key. A missing key is (false, nil).
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Download copies an object to localPath, replacing any existing file.
	Download(ctx context.Context, bucket, key, localPath string) error

	// PutIfAbsent creates key with body only if it does not exist yet.
	// Returns ErrMarkerExists when another writer got there first.
	PutIfAbsent(ctx context.Context, bucket, key string, body []byte) error
}
