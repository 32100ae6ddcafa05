package syncer

import "sync"

// slotRegistry enforces one in-flight sync per collection. Acquisition is
// non-blocking; a held slot means the caller gets ErrSyncInProgress.
//
// Each acquisition hands out a token. Release is a no-op unless the token
// matches, so an owner that was forcibly disowned by the stale sweep cannot
// release a slot that has since been re-acquired by a newer sync.
type slotRegistry struct {
	mu    sync.Mutex
	next  uint64
	slots map[string]uint64
}

func newSlotRegistry() *slotRegistry {
	return &slotRegistry{slots: make(map[string]uint64)}
}

// tryAcquire claims the slot for a collection. It returns a release token and
// true on success, or 0 and false when the slot is already held.
func (r *slotRegistry) tryAcquire(collection string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.slots[collection]; held {
		return 0, false
	}
	r.next++
	r.slots[collection] = r.next
	return r.next, true
}

// release frees the slot if token still owns it.
func (r *slotRegistry) release(collection string, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slots[collection] == token {
		delete(r.slots, collection)
	}
}

// forceRelease frees the slot regardless of owner. Used by the stale sweep.
func (r *slotRegistry) forceRelease(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, collection)
}

// held reports whether the slot is currently claimed.
func (r *slotRegistry) held(collection string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[collection]
	return ok
}
