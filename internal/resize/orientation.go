package resize

import (
	"image"

	"github.com/disintegration/imaging"
)

// Transform is the geometric correction for one EXIF orientation code:
// an optional horizontal flip followed by a clockwise rotation.
type Transform struct {
	FlipH  bool
	Rotate int // clockwise degrees: 0, 90, 180, or -90
}

// OrientationTransform maps an EXIF orientation code onto the transform that
// presents the pixel data right-side-up. Codes outside 1-8 are a no-op; no
// default rotation is ever guessed.
func OrientationTransform(code int) Transform {
	switch code {
	case 2:
		return Transform{FlipH: true}
	case 3:
		return Transform{Rotate: 180}
	case 4:
		return Transform{FlipH: true, Rotate: 180}
	case 5:
		return Transform{FlipH: true, Rotate: 90}
	case 6:
		return Transform{Rotate: 90}
	case 7:
		return Transform{FlipH: true, Rotate: -90}
	case 8:
		return Transform{Rotate: -90}
	default:
		return Transform{}
	}
}

// ApplyOrientation corrects img per the EXIF orientation code. The result is
// upright pixel data; because every backend re-encodes from raw pixels, no
// orientation tag survives into the derivative, so downstream consumers never
// re-apply the correction.
func ApplyOrientation(img image.Image, code int) image.Image {
	t := OrientationTransform(code)
	if t.FlipH {
		img = imaging.FlipH(img)
	}
	// imaging rotates counter-clockwise, the transform table is clockwise.
	switch t.Rotate {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case -90:
		img = imaging.Rotate90(img)
	}
	return img
}
