package store

import (
	"fmt"

	"github.com/gofrs/flock"
)

// acquireLock takes a non-blocking exclusive lock on path+".lock", enforcing
// the single-instance-per-node assumption (spec.md §1 Non-goals). Mirrors the
// teacher's daemon registry file lock (internal/daemon/registry.go), adapted
// from a blocking registry lock to a fail-fast startup lock.
func acquireLock(dbPath string) (*flock.Flock, error) {
	fl := flock.New(dbPath + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking catalogue: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("catalogue %s is already locked by another instance", dbPath)
	}
	return fl, nil
}
