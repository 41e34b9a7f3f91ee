package resize

import (
	"fmt"
	"strings"
)

// Encoding names one of the four supported derivative formats.
type Encoding string

const (
	EncodingWebP Encoding = "webp"
	EncodingAVIF Encoding = "avif"
	EncodingJPEG Encoding = "jpeg"
	EncodingPNG  Encoding = "png"
)

// ParseEncoding maps a format name onto a supported Encoding. "jpg" is
// accepted as an alias for jpeg; anything else is rejected.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "webp":
		return EncodingWebP, nil
	case "avif":
		return EncodingAVIF, nil
	case "jpeg", "jpg":
		return EncodingJPEG, nil
	case "png":
		return EncodingPNG, nil
	default:
		return "", fmt.Errorf("resize: %w: %q", ErrUnsupportedEncoding, name)
	}
}

// Ext returns the file extension for the encoding, without the leading dot.
func (e Encoding) Ext() string {
	return string(e)
}
