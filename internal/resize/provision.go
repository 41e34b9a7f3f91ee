package resize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// guardFileName is written into every cache directory so web servers pointed
// at the cache tree never expose directory listings.
const guardFileName = "index.html"

const guardFileContent = "<!DOCTYPE html>\n<html><head><title></title></head><body></body></html>\n"

// EnsureCacheDir idempotently provisions the parent directory of
// cacheFileAbs. When the parent already exists the call returns immediately.
// Otherwise each missing segment below root is created and a guard file is
// dropped into every created-or-confirmed directory that lacks one. Failures
// are fatal for the request; directories created before the failure stay in
// place.
func EnsureCacheDir(rootAbs, cacheFileAbs string) error {
	parent := filepath.Dir(cacheFileAbs)
	if info, err := os.Stat(parent); err == nil && info.IsDir() {
		return nil
	}

	rel, err := filepath.Rel(rootAbs, parent)
	if err != nil {
		return fmt.Errorf("resize: cache dir %s outside root %s: %w", parent, rootAbs, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("resize: cache dir %s outside root %s", parent, rootAbs)
	}

	current := rootAbs
	for _, segment := range strings.Split(rel, string(filepath.Separator)) {
		if segment == "." || segment == "" {
			continue
		}
		current = filepath.Join(current, segment)
		if err := os.Mkdir(current, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("resize: create cache dir %s: %w", current, err)
		}
		if err := ensureGuardFile(current); err != nil {
			return err
		}
	}
	return nil
}

// ensureGuardFile writes the static listing guard if the directory lacks one.
func ensureGuardFile(dir string) error {
	guard := filepath.Join(dir, guardFileName)
	if _, err := os.Stat(guard); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("resize: stat guard file %s: %w", guard, err)
	}
	if err := os.WriteFile(guard, []byte(guardFileContent), 0o644); err != nil {
		return fmt.Errorf("resize: write guard file %s: %w", guard, err)
	}
	return nil
}
