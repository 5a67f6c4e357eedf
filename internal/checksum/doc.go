// Package checksum fingerprints downloaded source files.
//
// The pipeline logs the SHA-256 of every object it loads, so an operator can
// tell from the run log exactly which bytes reached the warehouse, and it
// warns when two categories were fed identical content.
package checksum
