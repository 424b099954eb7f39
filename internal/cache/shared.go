package cache

import (
	"container/list"
	"sync"
	"weak"

	"github.com/go-theft-craft/blast/internal/world"
)

// sharedTier holds demoted snapshots. The decoded value is only weakly
// referenced; the compressed bytes are kept until the byte budget forces
// them out, oldest first. One mutex guards the map and the budget.
type sharedTier struct {
	mu      sync.Mutex
	budget  int64
	bytes   int64
	order   *list.List // front = most recently stored
	entries map[uint64]*list.Element
}

type sharedEntry struct {
	key    uint64
	ref    weak.Pointer[world.ChunkSnapshot]
	packed []byte
}

func newSharedTier(budget int64) *sharedTier {
	return &sharedTier{
		budget:  budget,
		order:   list.New(),
		entries: make(map[uint64]*list.Element),
	}
}

// get returns the live snapshot if the collector has not reclaimed it, and
// otherwise the compressed bytes.
func (t *sharedTier) get(key uint64) (*world.ChunkSnapshot, []byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.entries[key]
	if !ok {
		return nil, nil, false
	}
	e := el.Value.(*sharedEntry)
	return e.ref.Value(), e.packed, true
}

// refresh rebinds an existing entry to snap and reports whether one existed.
func (t *sharedTier) refresh(key uint64, snap *world.ChunkSnapshot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.entries[key]
	if !ok {
		return false
	}
	el.Value.(*sharedEntry).ref = weak.Make(snap)
	t.order.MoveToFront(el)
	return true
}

func (t *sharedTier) rebind(key uint64, snap *world.ChunkSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.entries[key]; ok {
		el.Value.(*sharedEntry).ref = weak.Make(snap)
	}
}

// put stores a new entry and returns how many entries the budget evicted.
// An entry larger than the whole budget is not kept.
func (t *sharedTier) put(key uint64, snap *world.ChunkSnapshot, packed []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.entries[key]; ok {
		t.drop(el)
	}
	if int64(len(packed)) > t.budget {
		return 0
	}
	t.entries[key] = t.order.PushFront(&sharedEntry{key: key, ref: weak.Make(snap), packed: packed})
	t.bytes += int64(len(packed))

	evicted := 0
	for t.bytes > t.budget {
		t.drop(t.order.Back())
		evicted++
	}
	return evicted
}

func (t *sharedTier) remove(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.entries[key]; ok {
		t.drop(el)
	}
}

// drop must be called with mu held.
func (t *sharedTier) drop(el *list.Element) {
	e := el.Value.(*sharedEntry)
	t.order.Remove(el)
	delete(t.entries, e.key)
	t.bytes -= int64(len(e.packed))
}

func (t *sharedTier) size() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytes
}

func (t *sharedTier) stats() (int, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len(), t.bytes
}
