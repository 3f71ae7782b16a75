// Package constants provides shared constants used throughout the cardmap codebase.
// This includes pipeline defaults, file names and file permissions that should be
// consistent across the library and the CLI.
package constants

import "time"

// Annotation defaults mirror the pacing the free Gemini tier tolerates.
const (
	// DefaultBatchSize is the maximum number of names sent in one annotation task
	DefaultBatchSize = 30

	// DefaultQuota is the maximum number of names submitted per run
	DefaultQuota = 300

	// DefaultMaxAttempts is the number of candidate-loop attempts per task
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first backoff wait after a failed attempt
	DefaultBaseDelay = 5 * time.Second

	// DefaultMaxDelay caps the exponential backoff
	DefaultMaxDelay = 60 * time.Second

	// DefaultTaskDelay is the pause after every task
	DefaultTaskDelay = 4 * time.Second

	// DiscoverTimeout bounds the model discovery call
	DiscoverTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands that do not annotate
	CommandTimeout = 10 * time.Minute
)

// File names inside the state and output directories.
const (
	// DictionaryFile holds the name to reading mapping
	DictionaryFile = "furigana_dictionary.json"

	// QueueFile holds the verified/unverified name sets
	QueueFile = "verification_queue.yaml"

	// LockFile guards the state directory against concurrent runs
	LockFile = ".cardmap.lock"

	// RecordsDatabase is the SQLite record store file name
	RecordsDatabase = "records.db"

	// CatalogJSON is the exported document
	CatalogJSON = "cards.json"

	// MergedCSV is the merged table with duplicate flags
	MergedCSV = "merged_cards.csv"

	// MergedXLSX is the merged table as a workbook
	MergedXLSX = "merged_cards.xlsx"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)
