// Package config holds the small options record that process startup
// hands to the core: which database files to serve and how to run the
// pool and pagination.
package config

import "time"

// Default tuning values, named per spec.md's constants (§4.3, §4.4).
const (
	DefaultWorkers          = 3
	DefaultStatementTimeout = 1000 * time.Millisecond
	DefaultPageSize         = 100
	DefaultMaxPageSize      = 1000
	// NextPageOverfetch is the "+1" sentinel row fetched beyond the page
	// size to detect whether a next page exists without a second query.
	NextPageOverfetch = 1
	// progressHandlerFastN is the VM-instruction interval used for the
	// sqlite progress callback when the deadline is large enough that
	// polling every 1000 opcodes won't overshoot it badly.
	progressHandlerFastN = 1000
	// progressHandlerFineN is used instead when the deadline is small
	// enough that 1000-opcode granularity could blow through it.
	progressHandlerFineN         = 1
	progressHandlerFineThreshold = 50 * time.Millisecond
)

// Options configures a running server. Construct with Default and
// override individual fields.
type Options struct {
	// Paths lists the database files to publish. Each file's stem
	// becomes its logical name in the Catalog.
	Paths []string

	// Addr is the HTTP listen address, e.g. ":8001".
	Addr string

	// Workers is the fixed size of the SQL execution pool.
	Workers int

	// StatementTimeout bounds the wall-clock duration of a single
	// statement.
	StatementTimeout time.Duration

	// PageSize is the default number of rows returned per Table page.
	PageSize int

	// MaxPageSize bounds a caller-supplied "_size" override.
	MaxPageSize int

	// CacheHeaders enables the one-year Cache-Control header on
	// successful responses.
	CacheHeaders bool
}

// Default returns an Options populated with the spec's documented
// defaults. Callers still need to set Paths.
func Default() Options {
	return Options{
		Addr:             ":8001",
		Workers:          DefaultWorkers,
		StatementTimeout: DefaultStatementTimeout,
		PageSize:         DefaultPageSize,
		MaxPageSize:      DefaultMaxPageSize,
		CacheHeaders:     true,
	}
}

// ProgressHandlerInterval reports the VM-instruction interval to use for
// a progress callback given the configured statement timeout (spec.md
// §4.3).
func ProgressHandlerInterval(timeout time.Duration) int {
	if timeout < progressHandlerFineThreshold {
		return progressHandlerFineN
	}
	return progressHandlerFastN
}
