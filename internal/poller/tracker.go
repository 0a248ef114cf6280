package poller

import "sync"

// inflightTracker guards against the same accession id being processed by two
// goroutines at once, e.g. when a slow filing is still in flight while the
// next poll cycle re-reserves nothing but a racing caller retries it.
type inflightTracker struct {
	active sync.Map
}

func newInflightTracker() *inflightTracker {
	return &inflightTracker{}
}

// MarkIfNew claims the id if it is not already in flight and returns true.
func (t *inflightTracker) MarkIfNew(id string) bool {
	if id == "" {
		return false
	}
	_, loaded := t.active.LoadOrStore(id, struct{}{})
	return !loaded
}

// Done releases the claim on an id.
func (t *inflightTracker) Done(id string) {
	t.active.Delete(id)
}
