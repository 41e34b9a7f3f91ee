package resize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/chai2010/webp"
	"github.com/gen2brain/avif"
	nfnt "github.com/nfnt/resize"
)

// BasicBackend is the last-resort local backend: a plain aspect-preserving
// resize with no EXIF handling and no resampling choices beyond Lanczos3.
// Sources shot sideways come out sideways here; that is the accepted
// trade-off for a backend with minimal moving parts.
type BasicBackend struct {
	logger *slog.Logger
}

// NewBasicBackend returns the minimal fallback backend.
func NewBasicBackend(logger *slog.Logger) *BasicBackend {
	return &BasicBackend{logger: logger}
}

// Name identifies the backend in configuration and telemetry.
func (b *BasicBackend) Name() string { return "basic" }

// Resize decodes the source, computes the missing dimension from the aspect
// ratio, resizes, and re-encodes to the requested format.
func (b *BasicBackend) Resize(ctx context.Context, job Job) (BackendResult, error) {
	f, err := os.Open(job.SourceAbs)
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: basic backend: open source: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: basic backend: decode %s: %w", job.SourceRel, err)
	}
	if err := ctx.Err(); err != nil {
		return BackendResult{}, fmt.Errorf("resize: basic backend: %w", err)
	}

	bounds := img.Bounds()
	width, height := resolveTargetDims(bounds.Dx(), bounds.Dy(), job.Width, job.Height)
	resized := nfnt.Resize(uint(width), uint(height), img, nfnt.Lanczos3)

	var buf bytes.Buffer
	switch job.Encoding {
	case EncodingJPEG:
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: job.Quality})
	case EncodingPNG:
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		err = encoder.Encode(&buf, resized)
	case EncodingWebP:
		err = webp.Encode(&buf, resized, &webp.Options{Quality: float32(job.Quality)})
	case EncodingAVIF:
		err = avif.Encode(&buf, resized, avif.Options{Quality: job.Quality})
	default:
		return BackendResult{}, fmt.Errorf("resize: basic backend: %w: %q", ErrUnsupportedEncoding, job.Encoding)
	}
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: basic backend: encode %s: %w", job.Encoding, err)
	}

	if err := writeFileAtomic(job.DestAbs, &buf); err != nil {
		return BackendResult{}, err
	}

	final := resized.Bounds()
	b.logger.Debug("basic resize complete",
		slog.String("source", job.SourceRel),
		slog.String("dest", job.DestAbs),
		slog.Int("width", final.Dx()),
		slog.Int("height", final.Dy()))
	return BackendResult{Width: final.Dx(), Height: final.Dy()}, nil
}
