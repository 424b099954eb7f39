package cache

import (
	"container/list"
	"sync"

	"github.com/go-theft-craft/blast/internal/world"
)

// localTier is an access-ordered LRU of decoded snapshots.
type localTier struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[uint64]*list.Element
}

type localEntry struct {
	key  uint64
	snap *world.ChunkSnapshot
}

func newLocalTier(capacity int) *localTier {
	return &localTier{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[uint64]*list.Element, capacity),
	}
}

func (t *localTier) get(key uint64) (*world.ChunkSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	t.order.MoveToFront(el)
	return el.Value.(*localEntry).snap, true
}

// put inserts or refreshes key. When the tier overflows it returns the
// least recently used entry, which the caller demotes.
func (t *localTier) put(key uint64, snap *world.ChunkSnapshot) (uint64, *world.ChunkSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.entries[key]; ok {
		el.Value.(*localEntry).snap = snap
		t.order.MoveToFront(el)
		return 0, nil, false
	}
	t.entries[key] = t.order.PushFront(&localEntry{key: key, snap: snap})
	if t.order.Len() <= t.capacity {
		return 0, nil, false
	}
	oldest := t.order.Back()
	t.order.Remove(oldest)
	e := oldest.Value.(*localEntry)
	delete(t.entries, e.key)
	return e.key, e.snap, true
}

func (t *localTier) remove(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.entries[key]; ok {
		t.order.Remove(el)
		delete(t.entries, key)
	}
}

func (t *localTier) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}
