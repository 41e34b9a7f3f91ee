package resize

import (
	"fmt"
	"path"
	"strings"
)

// ResolveCachePath derives the canonical relative cache path for a
// (source, driving dimension, encoding) tuple:
//
//	<cacheRoot>/w<width>/<sourceWithoutExt>.<encoding>
//
// or h<height> when height drives. Two requests with identical inputs always
// resolve to the same path, which is what makes overwrite-in-place safe.
// Returns "" when neither dimension is set; callers must treat that as an
// invalid request. Pure function, no I/O.
func ResolveCachePath(cacheRoot, sourcePath string, width, height int, enc Encoding) string {
	var bucket string
	switch {
	case width > 0:
		bucket = fmt.Sprintf("w%d", width)
	case height > 0:
		bucket = fmt.Sprintf("h%d", height)
	default:
		return ""
	}

	source := strings.TrimPrefix(path.Clean(sourcePath), "/")
	if ext := path.Ext(source); ext != "" {
		source = strings.TrimSuffix(source, ext)
	}
	return path.Join(cacheRoot, bucket, source+"."+enc.Ext())
}
