// Package locking provides per-cache-key mutual exclusion so concurrent
// requests for the same derivative never interleave their writes.
package locking

// Group runs functions with mutual exclusion over string keys. Keys are
// canonical cache paths, so two requests for the same derivative serialize
// while unrelated derivatives proceed in parallel.
type Group interface {
	// DoWithLock runs fn while holding the lock for key.
	DoWithLock(key string, fn func() error) error
}
