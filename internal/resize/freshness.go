package resize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Freshness classifies a cache candidate relative to its source.
type Freshness int

const (
	// FreshnessMiss means no usable derivative exists at the candidate path.
	FreshnessMiss Freshness = iota
	// FreshnessHit means the derivative is at least as new as its source.
	FreshnessHit
	// FreshnessStale means the derivative predates its source and must be
	// regenerated in place.
	FreshnessStale
)

// CheckFreshness compares the candidate derivative against its source by
// modification time. An absent candidate is a miss, candidate mtime >= source
// mtime is a hit, anything older is stale. The source must exist; callers
// verify that before asking.
func CheckFreshness(sourceAbs, candidateAbs string) (Freshness, error) {
	candidate, err := os.Stat(candidateAbs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FreshnessMiss, nil
		}
		return FreshnessMiss, fmt.Errorf("resize: stat cache candidate %s: %w", candidateAbs, err)
	}

	source, err := os.Stat(sourceAbs)
	if err != nil {
		return FreshnessMiss, fmt.Errorf("resize: stat source %s: %w", sourceAbs, err)
	}

	if candidate.ModTime().Before(source.ModTime()) {
		return FreshnessStale, nil
	}
	return FreshnessHit, nil
}
