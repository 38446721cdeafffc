package harvest

import "sync"

// Deduplicator rejects records whose canonical key was already accepted in
// this run. The key set is shared across workers, so membership is guarded by
// a mutex; cost stays O(1) per record. Cross-run deduplication belongs to the
// storage upsert, not here.
type Deduplicator struct {
	mu    sync.Mutex
	seen  map[CanonicalKey]struct{}
	dupes map[CanonicalKey]int
}

// NewDeduplicator returns an empty run-scoped deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		seen:  make(map[CanonicalKey]struct{}),
		dupes: make(map[CanonicalKey]int),
	}
}

// Accept returns true for the first occurrence of the record's canonical key
// and false for every later one.
func (d *Deduplicator) Accept(rec SchemeRecord) bool {
	key := rec.Key()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.seen[key]; dup {
		d.dupes[key]++
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Duplicates returns the rejected keys and their rejection counts.
func (d *Deduplicator) Duplicates() map[CanonicalKey]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[CanonicalKey]int, len(d.dupes))
	for k, v := range d.dupes {
		out[k] = v
	}
	return out
}

// DuplicateCount returns the total number of rejections.
func (d *Deduplicator) DuplicateCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, v := range d.dupes {
		total += v
	}
	return total
}
