package resize

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrInvalidRequest marks requests the orchestrator refuses outright:
	// no driving dimension, bad quality, or an unsafe source path.
	ErrInvalidRequest = errors.New("invalid resize request")
	// ErrSourceMissing marks requests whose source image does not exist.
	ErrSourceMissing = errors.New("source image missing")
	// ErrUnsupportedEncoding marks format names outside webp/avif/jpeg/png.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrExhausted marks requests every configured backend failed to serve.
	ErrExhausted = errors.New("all resize backends failed")
)

// Request describes one derivative to produce. Exactly one of Width/Height
// drives the resize; when both are set, width wins and height is recomputed
// from the source aspect ratio so every backend produces identical geometry.
type Request struct {
	SourcePath    string
	Width         int
	Height        int
	Encoding      Encoding
	Quality       int
	StripMetadata bool
}

// Result is what the caller owns after a successful Produce. On a cache hit
// Width and Height are zero: cached dimensions are never re-probed, callers
// needing them must inspect the file themselves.
type Result struct {
	Path   string
	Width  int
	Height int
}

// Validate rejects requests the pipeline cannot serve.
func (r Request) Validate() error {
	if r.Width <= 0 && r.Height <= 0 {
		return fmt.Errorf("resize: %w: no driving dimension", ErrInvalidRequest)
	}
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("resize: %w: negative dimension", ErrInvalidRequest)
	}
	if r.Quality < 0 || r.Quality > 100 {
		return fmt.Errorf("resize: %w: quality %d out of range", ErrInvalidRequest, r.Quality)
	}
	switch r.Encoding {
	case EncodingWebP, EncodingAVIF, EncodingJPEG, EncodingPNG:
	default:
		return fmt.Errorf("resize: %w: %q", ErrUnsupportedEncoding, r.Encoding)
	}
	cleaned := path.Clean(strings.TrimPrefix(r.SourcePath, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("resize: %w: source path %q escapes the source root", ErrInvalidRequest, r.SourcePath)
	}
	return nil
}

// normalized returns a copy with the width-wins policy applied and the source
// path cleaned to a root-relative slash path.
func (r Request) normalized() Request {
	if r.Width > 0 {
		r.Height = 0
	}
	r.SourcePath = path.Clean(strings.TrimPrefix(r.SourcePath, "/"))
	return r
}
