// Package errs defines the sentinel errors shared by every bfsnd package.
//
// Errors are wrapped with context using fmt.Errorf("%w: ...") and tested
// with errors.Is. Fatal errors abort the current parse; recoverable ones are
// collected as warnings on the parse result.
package errs

import "errors"

// Stream access.
var (
	// ErrOutOfBounds is returned when a read, seek or patch would cross the end of the buffer.
	ErrOutOfBounds = errors.New("access out of bounds")
	// ErrInvalidAlignment is returned for a non power-of-two alignment request.
	ErrInvalidAlignment = errors.New("invalid alignment")
)

// Container structure.
var (
	ErrMalformedMagic          = errors.New("malformed magic")
	ErrMalformedByteOrderMark  = errors.New("malformed byte order mark")
	ErrUnsupportedSectionFlag  = errors.New("unsupported section flag")
	ErrMissingRequiredSection  = errors.New("missing required section")
	ErrMissingReference        = errors.New("missing required reference")
	ErrUnsupportedVersion      = errors.New("unsupported version")
	ErrChannelCountMismatch    = errors.New("channel count mismatch")
	ErrUnsupportedEncoding     = errors.New("unsupported encoding")
	ErrInvalidStreamInfo       = errors.New("invalid stream info")
	ErrInvalidChannelInfo      = errors.New("invalid channel info")
	ErrInvalidRegion           = errors.New("invalid region table")
	ErrInvalidFileInfo         = errors.New("invalid file info")
	ErrItemCountMismatch       = errors.New("item count mismatch")
	ErrInvalidStringTable      = errors.New("invalid string table")
	ErrTooManySections         = errors.New("too many sections")
	ErrInvalidSampleData       = errors.New("invalid sample data")
	ErrInvalidCoefficientTable = errors.New("invalid coefficient table")
)

// String trie.
var (
	ErrDuplicateTrieKey = errors.New("duplicate trie key")
	ErrEmptyTrie        = errors.New("empty trie")
	ErrInvalidTrie      = errors.New("invalid trie")
	ErrItemNotFound     = errors.New("item not found")
	ErrInvalidName      = errors.New("invalid name")
)

// Playback.
var (
	ErrNoRegions        = errors.New("stream has no regions")
	ErrInvalidBlock     = errors.New("invalid block index")
	ErrInvalidChannel   = errors.New("invalid channel pair")
	ErrSchedulerStopped = errors.New("scheduler stopped")
	ErrSchedulerRunning = errors.New("scheduler already running")
)

// Compression and cache.
var (
	ErrInvalidCompressionType = errors.New("invalid compression type")
	ErrCacheMiss              = errors.New("cache miss")
)
