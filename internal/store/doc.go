// Package store implements payetl.ObjectStore.
//
// S3Store talks to Amazon S3 (or any S3-compatible endpoint) through
// aws-sdk-go-v2. MemoryStore keeps objects in memory and backs unit tests
// and local dry runs.
package store
