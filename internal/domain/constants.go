package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultRequestTimeout bounds a single model call.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultProbeTimeout bounds a doctor probe of a plugin binary.
	DefaultProbeTimeout = 3 * time.Second
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 60 * time.Second
)

// Limit constants
const (
	// DefaultMaxOutputBytes caps captured stdout and stderr, each.
	DefaultMaxOutputBytes = 64 * 1024
	// DefaultContextMaxFiles is the listing size above which the scan is summarized.
	DefaultContextMaxFiles = 20
	// DefaultContextMaxDepth limits directory recursion for the scan.
	DefaultContextMaxDepth = 1
	// ContextSummaryPreview is how many names a summarized listing keeps.
	ContextSummaryPreview = 5
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 1024
	// DefaultRouterMinConfidence turns low confidence routes into clarifications.
	DefaultRouterMinConfidence = 0.5
	// DefaultMaxClarifyRounds limits follow-up questions per request.
	DefaultMaxClarifyRounds = 2
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)

// ConfigFormatVersion is written into freshly created config files.
const ConfigFormatVersion = "1"
