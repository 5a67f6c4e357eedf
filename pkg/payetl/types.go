package payetl

import (
	"errors"
	"fmt"
	"time"
)

// ObjectInfo describes one listed object in the store.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	Size         int64
}

// Selection maps every satisfied category to the object chosen for it.
type Selection map[Category]ObjectInfo

// Missing returns unsatisfied categories in fixed order.
func (s Selection) Missing() []Category {
	var missing []Category
	for _, c := range AllCategories() {
		if _, ok := s[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Keys returns the chosen key per category name.
func (s Selection) Keys() map[string]string {
	keys := make(map[string]string, len(s))
	for c, obj := range s {
		keys[c.String()] = obj.Key
	}
	return keys
}

// TableStats counts the outcome of loading one destination table.
type TableStats struct {
	Table    string `json:"table"`
	Inserted int64  `json:"inserted"`
	Skipped  int64  `json:"skipped"`
	Batches  int    `json:"batches"`
}

// LoadStats holds per-table results in load order.
type LoadStats struct {
	Tables []TableStats `json:"tables"`
}

// Inserted returns the total number of rows inserted across all tables.
func (s LoadStats) Inserted() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.Inserted
	}
	return n
}

// PollResult is returned by the polling variant.
type PollResult struct {
	OK     bool              `json:"ok"`
	Picked map[string]string `json:"picked"`
	Stats  LoadStats         `json:"stats"`
}

// EventResult is returned by the event-driven variant.
// Ready=false with Missing populated and AlreadyDone are normal outcomes,
// not failures.
type EventResult struct {
	OK          bool              `json:"ok"`
	Ready       bool              `json:"ready"`
	Date        string            `json:"date"`
	AlreadyDone bool              `json:"already_done,omitempty"`
	InProgress  bool              `json:"in_progress,omitempty"`
	Missing     []string          `json:"missing,omitempty"`
	Picked      map[string]string `json:"picked,omitempty"`
	Stats       *LoadStats        `json:"stats,omitempty"`
}

// AuthMethod represents the type of database authentication to use.
type AuthMethod int

const (
	AuthMethodStandard AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                     // AWS RDS IAM token
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAWSIAM
}

// ParseAuthMethod maps a config value onto an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch s {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws-iam", "aws_iam", "iam":
		return AuthMethodAWSIAM, nil
	default:
		return 0, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	AuthMethod AuthMethod
	AWSRegion  string

	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string
}

// Validate checks the fields every connector needs.
func (c *ConnectionConfig) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, fmt.Errorf("database host is required: %w", ErrInvalidConfig))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("database port %d is out of range: %w", c.Port, ErrInvalidConfig))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("database name is required: %w", ErrInvalidConfig))
	}
	if c.AuthMethod == AuthMethodAWSIAM && c.AWSRegion == "" {
		errs = append(errs, fmt.Errorf("AWS IAM auth requires a region: %w", ErrInvalidConfig))
	}
	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}
	return errors.Join(errs...)
}
