package resize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNativeBackendResizesFromWidth(t *testing.T) {
	dir := t.TempDir()
	source := writeSourceJPEG(t, dir, "a.jpg", 400, 200)
	dest := filepath.Join(dir, "a-w100.jpeg")

	backend := NewNativeBackend(discardLogger())
	result, err := backend.Resize(context.Background(), Job{
		SourceAbs: source,
		SourceRel: "a.jpg",
		DestAbs:   dest,
		Width:     100,
		Encoding:  EncodingJPEG,
		Quality:   80,
	})
	require.NoError(t, err)
	require.Equal(t, 100, result.Width)
	require.Equal(t, 50, result.Height)

	w, h := decodeDims(t, dest)
	require.Equal(t, 100, w)
	require.Equal(t, 50, h)
}

func TestNativeBackendResizesFromHeight(t *testing.T) {
	dir := t.TempDir()
	source := writeSourceJPEG(t, dir, "b.jpg", 400, 200)
	dest := filepath.Join(dir, "b-h50.png")

	backend := NewNativeBackend(discardLogger())
	result, err := backend.Resize(context.Background(), Job{
		SourceAbs: source, SourceRel: "b.jpg", DestAbs: dest,
		Height: 50, Encoding: EncodingPNG, Quality: 80,
	})
	require.NoError(t, err)
	require.Equal(t, 100, result.Width)
	require.Equal(t, 50, result.Height)

	w, h := decodePNGDims(t, dest)
	require.Equal(t, 100, w)
	require.Equal(t, 50, h)
}

func TestNativeBackendMissingSourceFails(t *testing.T) {
	backend := NewNativeBackend(discardLogger())
	_, err := backend.Resize(context.Background(), Job{
		SourceAbs: filepath.Join(t.TempDir(), "missing.jpg"),
		DestAbs:   filepath.Join(t.TempDir(), "out.jpeg"),
		Width:     40, Encoding: EncodingJPEG, Quality: 80,
	})
	require.Error(t, err)
}

func TestNativeBackendUndecodableSourceFails(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "garbage.jpg")
	require.NoError(t, writeFile(source, []byte("not an image")))

	backend := NewNativeBackend(discardLogger())
	_, err := backend.Resize(context.Background(), Job{
		SourceAbs: source, DestAbs: filepath.Join(dir, "out.jpeg"),
		Width: 40, Encoding: EncodingJPEG, Quality: 80,
	})
	require.ErrorContains(t, err, "decode")
}

func TestNativeBackendUnsupportedEncodingFails(t *testing.T) {
	dir := t.TempDir()
	source := writeSourceJPEG(t, dir, "c.jpg", 100, 50)

	backend := NewNativeBackend(discardLogger())
	_, err := backend.Resize(context.Background(), Job{
		SourceAbs: source, DestAbs: filepath.Join(dir, "c.bmp"),
		Width: 40, Encoding: Encoding("bmp"), Quality: 80,
	})
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestNativeBackendHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	source := writeSourceJPEG(t, dir, "d.jpg", 100, 50)
	dest := filepath.Join(dir, "out.jpeg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := NewNativeBackend(discardLogger())
	_, err := backend.Resize(ctx, Job{
		SourceAbs: source, DestAbs: dest,
		Width: 40, Encoding: EncodingJPEG, Quality: 80,
	})
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(dest)
	require.ErrorIs(t, statErr, os.ErrNotExist, "cancelled attempts must not leave cache files")
}

func TestReadOrientationDefaultsWithoutEXIF(t *testing.T) {
	require.Equal(t, 1, readOrientation([]byte("no exif here")))
}
