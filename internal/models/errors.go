package models

import "errors"

// Error taxonomy. Gateway and cache failures are absorbed close to where
// they happen and degrade behavior instead of aborting a scan; only
// ErrInvalidRequest is ever surfaced to callers of Scan.
var (
	// ErrInvalidRequest means the scan request cannot be executed at
	// all (empty item or location list, bad quality selector).
	ErrInvalidRequest = errors.New("invalid scan request")

	// ErrDataUnavailable means the upstream fetch failed or returned
	// nothing for the requested parameters.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrCacheCorrupt means a cache entry could not be read back; the
	// entry is deleted and the lookup treated as a miss.
	ErrCacheCorrupt = errors.New("cache entry corrupt")

	// ErrConfigInvalid means required settings were missing or
	// malformed; hardcoded safe defaults are used instead.
	ErrConfigInvalid = errors.New("configuration invalid")
)
