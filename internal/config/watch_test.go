package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgctrl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resize:\n  quality: 50\n"), 0o644))

	loader := NewLoader("", path)
	updates := make(chan Config, 4)
	watcher, err := loader.Watch(context.Background(), func(cfg Config) {
		updates <- cfg
	}, func(err error) {
		t.Logf("watch error: %v", err)
	})
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("resize:\n  quality: 70\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-updates:
			if cfg.Resize.Quality == 70 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatchKeepsRunningOnInvalidSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgctrl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resize:\n  quality: 50\n"), 0o644))

	loader := NewLoader("", path)
	updates := make(chan Config, 4)
	errs := make(chan error, 4)
	watcher, err := loader.Watch(context.Background(), func(cfg Config) {
		updates <- cfg
	}, func(err error) {
		errs <- err
	})
	require.NoError(t, err)
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("resize:\n  converters: [gd2]\n"), 0o644))
	select {
	case err := <-errs:
		require.ErrorContains(t, err, "unknown converter")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch error")
	}

	require.NoError(t, os.WriteFile(path, []byte("resize:\n  quality: 60\n"), 0o644))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-updates:
			if cfg.Resize.Quality == 60 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for recovery reload")
		}
	}
}

func TestWatchRequiresCallback(t *testing.T) {
	_, err := NewLoader("", "x.yaml").Watch(context.Background(), nil, nil)
	require.ErrorContains(t, err, "change callback")
}

func TestWatchRequiresFile(t *testing.T) {
	_, err := NewLoader("").Watch(context.Background(), func(Config) {}, nil)
	require.ErrorContains(t, err, "no file configured")
}
