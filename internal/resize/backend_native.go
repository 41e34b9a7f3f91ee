package resize

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/rwcarlsen/goexif/exif"

	// Register decoders for source formats the stdlib does not cover.
	_ "golang.org/x/image/webp"
)

// NativeBackend performs the resize locally with a high-fidelity pipeline:
// full in-memory decode, EXIF orientation correction, Lanczos resampling,
// and per-encoding compression control. Re-encoding from raw pixels always
// drops non-pixel metadata, so the derivative is stripped regardless of the
// job flag; the flag only matters to the remote backend.
type NativeBackend struct {
	logger *slog.Logger
}

// NewNativeBackend returns the local high-fidelity backend.
func NewNativeBackend(logger *slog.Logger) *NativeBackend {
	return &NativeBackend{logger: logger}
}

// Name identifies the backend in configuration and telemetry.
func (b *NativeBackend) Name() string { return "native" }

// Resize loads the source fully, corrects orientation, resizes, and writes
// the encoded derivative atomically. Every failure is a plain backend
// failure that drives fallback; nothing is retried here.
func (b *NativeBackend) Resize(ctx context.Context, job Job) (BackendResult, error) {
	data, err := os.ReadFile(job.SourceAbs)
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: native backend: read source: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return BackendResult{}, fmt.Errorf("resize: native backend: %w", err)
	}

	orientation := readOrientation(data)

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: native backend: decode %s: %w", job.SourceRel, err)
	}
	img = ApplyOrientation(img, orientation)

	bounds := img.Bounds()
	width, height := resolveTargetDims(bounds.Dx(), bounds.Dy(), job.Width, job.Height)
	if err := ctx.Err(); err != nil {
		return BackendResult{}, fmt.Errorf("resize: native backend: %w", err)
	}
	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	switch job.Encoding {
	case EncodingJPEG:
		err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(job.Quality))
	case EncodingPNG:
		err = imaging.Encode(&buf, resized, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case EncodingWebP:
		err = webp.Encode(&buf, resized, &webp.Options{Quality: float32(job.Quality)})
	case EncodingAVIF:
		err = avif.Encode(&buf, resized, avif.Options{Quality: job.Quality})
	default:
		return BackendResult{}, fmt.Errorf("resize: native backend: %w: %q", ErrUnsupportedEncoding, job.Encoding)
	}
	if err != nil {
		return BackendResult{}, fmt.Errorf("resize: native backend: encode %s: %w", job.Encoding, err)
	}

	if err := writeFileAtomic(job.DestAbs, &buf); err != nil {
		return BackendResult{}, err
	}

	final := resized.Bounds()
	b.logger.Debug("native resize complete",
		slog.String("source", job.SourceRel),
		slog.String("dest", job.DestAbs),
		slog.Int("orientation", orientation),
		slog.Int("width", final.Dx()),
		slog.Int("height", final.Dy()))
	return BackendResult{Width: final.Dx(), Height: final.Dy()}, nil
}

// readOrientation extracts the EXIF orientation code, returning 1 (top-left)
// when the source carries no EXIF block or no orientation tag.
func readOrientation(data []byte) int {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	code, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return code
}
