package payetl

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run completed (including not-ready and already-done)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to database
	ExitMissingFiles    = 12 // A category had no matching source object
	ExitFormatError     = 13 // Header mismatch, missing date token, no data
	ExitLoadFailed      = 14 // Truncate or insert failed
)

const (
	// DefaultBatchSize is the number of rows per INSERT and per commit.
	DefaultBatchSize = 100

	// DefaultHeaderSkipRows is the title/metadata region above the header
	// row in provider and staff exports.
	DefaultHeaderSkipRows = 5

	// DroppedColumnIndex is the zero-based column removed from provider and
	// staff exports. The source format repeats a derived value there.
	DroppedColumnIndex = 2

	// DefaultScratchDir receives downloads and cleaned CSV files.
	DefaultScratchDir = "/tmp"

	// MarkerKeyFormat names the per-date completion marker.
	MarkerKeyFormat = "_DONE_%s.txt"

	// DateLayout is the layout of the date token embedded in trigger keys.
	DateLayout = "2006-01-02"
)

// Destination tables.
const (
	TableProvider = "app.clinic_ccprov"
	TableStaff    = "app.clinic_ccstaff"
	TableLabor    = "app.clinic_labor_costs"
)

// Cleaned output file names in the scratch directory.
const (
	CleanedProviderFile = "cleaned_clinic_ccprov.csv"
	CleanedStaffFile    = "cleaned_clinic_ccstaff.csv"
)
