package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File streams path through SHA-256.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Duplicates groups names whose sums are equal. Each returned group has at
// least two names, in the order they were given.
func Duplicates(names []string, sums map[string]string) [][]string {
	byHash := make(map[string][]string)
	var order []string
	for _, n := range names {
		s, ok := sums[n]
		if !ok {
			continue
		}
		if _, seen := byHash[s]; !seen {
			order = append(order, s)
		}
		byHash[s] = append(byHash[s], n)
	}

	var groups [][]string
	for _, s := range order {
		if len(byHash[s]) > 1 {
			groups = append(groups, byHash[s])
		}
	}
	return groups
}
