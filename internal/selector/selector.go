// Package selector decides which source objects a run loads.
//
// The polling variant scans the prefix and keeps the newest object per
// category. The event variant derives the processing date from the
// triggering key and probes for the exact objects expected for that date.
package selector

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/vvka-141/payetl/pkg/payetl"
)

var dateToken = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// PickNewest lists bucket/prefix and picks, per category, the matching
// object with the greatest LastModified. Ties keep the first one listed.
func PickNewest(ctx context.Context, store payetl.ObjectStore, bucket, prefix string, logger payetl.Logger) (payetl.Selection, error) {
	sel := make(payetl.Selection)
	listed := 0

	err := store.List(ctx, bucket, prefix, func(obj payetl.ObjectInfo) error {
		listed++
		logger.Verbose("Listed %s", obj.Key)
		for _, c := range payetl.AllCategories() {
			if !c.Matches(obj.Key) {
				continue
			}
			cur, ok := sel[c]
			if !ok || obj.LastModified.After(cur.LastModified) {
				sel[c] = obj
				logger.Verbose("Newest %s is now %s", c, obj.Key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Verbose("Listed %d objects under s3://%s/%s", listed, bucket, prefix)

	if missing := sel.Missing(); len(missing) > 0 {
		return nil, &payetl.MissingFilesError{Bucket: bucket, Prefix: prefix, Categories: missing}
	}
	for _, c := range payetl.AllCategories() {
		logger.Info("Picked %s: %s", c, sel[c].Key)
	}
	return sel, nil
}

// ExtractDate returns the first YYYY-MM-DD token in key. The token must be
// a real calendar date.
func ExtractDate(key string) (string, error) {
	tok := dateToken.FindString(key)
	if tok == "" {
		return "", fmt.Errorf("%q: %w", key, payetl.ErrMissingDateToken)
	}
	if _, err := time.Parse(payetl.DateLayout, tok); err != nil {
		return "", fmt.Errorf("%q: %s is not a valid date: %w", key, tok, payetl.ErrMissingDateToken)
	}
	return tok, nil
}

// ExpectedKeys returns the exact key each category must have for date.
func ExpectedKeys(prefix, date string) map[payetl.Category]string {
	keys := make(map[payetl.Category]string, 4)
	for _, c := range payetl.AllCategories() {
		keys[c] = c.ExpectedKey(prefix, date)
	}
	return keys
}

// MarkerKey is the completion marker written after a successful load.
func MarkerKey(prefix, date string) string {
	return prefix + fmt.Sprintf(payetl.MarkerKeyFormat, date)
}

// CheckReady probes every expected key and returns the absent ones in
// category order.
func CheckReady(ctx context.Context, store payetl.ObjectStore, bucket string, expected map[payetl.Category]string) ([]string, error) {
	var missing []string
	for _, c := range payetl.AllCategories() {
		key, ok := expected[c]
		if !ok {
			continue
		}
		exists, err := store.Exists(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, key)
		}
	}
	return missing, nil
}
