package resize

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Job is one resolved resize work order handed to a backend. Paths are
// absolute; SourceRel is kept alongside for backends that address the source
// by URL instead of filesystem path.
type Job struct {
	SourceAbs     string
	SourceRel     string
	DestAbs       string
	Width         int
	Height        int
	Encoding      Encoding
	Quality       int
	StripMetadata bool
}

// BackendResult reports the final pixel dimensions of a written derivative.
type BackendResult struct {
	Width  int
	Height int
}

// Backend is one concrete resize strategy in the fallback chain. A failed
// attempt returns an error and writes nothing durable; the orchestrator then
// moves on to the next backend.
type Backend interface {
	Name() string
	Resize(ctx context.Context, job Job) (BackendResult, error)
}

// resolveTargetDims fills in whichever target dimension is missing using the
// source aspect ratio: target2 = round(orig2 * target1/orig1). Width wins
// when both targets are set, matching the request normalization policy.
func resolveTargetDims(origWidth, origHeight, targetWidth, targetHeight int) (int, int) {
	if origWidth <= 0 || origHeight <= 0 {
		return targetWidth, targetHeight
	}
	if targetWidth > 0 {
		h := int(math.Round(float64(origHeight) * float64(targetWidth) / float64(origWidth)))
		if h < 1 {
			h = 1
		}
		return targetWidth, h
	}
	if targetHeight > 0 {
		w := int(math.Round(float64(origWidth) * float64(targetHeight) / float64(origHeight)))
		if w < 1 {
			w = 1
		}
		return w, targetHeight
	}
	return targetWidth, targetHeight
}

// writeFileAtomic streams body to dest via a temp file in the same directory
// and renames it into place, so readers never observe a torn derivative and
// an aborted attempt leaves no partial cache file behind.
func writeFileAtomic(dest string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".imgctrl-*")
	if err != nil {
		return fmt.Errorf("resize: create temp file for %s: %w", dest, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		return fmt.Errorf("resize: write temp file for %s: %w", dest, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("resize: close temp file for %s: %w", dest, closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("resize: rename temp file to %s: %w", dest, err)
	}
	return nil
}
