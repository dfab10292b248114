package framegraph

import (
	"maps"
	"sync"
)

// AssetTable is a two-phase published mapping shared between the asset
// system and pass callbacks. Mutations accumulate in a pending slot that
// readers never see; Commit atomically swaps pending into the visible
// slot. A reader therefore observes either the full previous publication
// or the full next one, never a partial update.
//
// AssetTable is safe for concurrent use: many readers, one staging writer.
type AssetTable[K comparable, V any] struct {
	mu      sync.RWMutex
	visible map[K]V
	pending map[K]V
}

// NewAssetTable returns an empty table.
func NewAssetTable[K comparable, V any]() *AssetTable[K, V] {
	return &AssetTable[K, V]{visible: make(map[K]V)}
}

// Stage records a pending mapping. It is not visible to Committed until
// Commit runs.
func (t *AssetTable[K, V]) Stage(key K, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingLocked()[key] = value
}

// StageRemove records a pending removal.
func (t *AssetTable[K, V]) StageRemove(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pendingLocked(), key)
}

// Commit atomically publishes every staged change. With nothing staged it
// is a no-op.
func (t *AssetTable[K, V]) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return
	}
	t.visible = t.pending
	t.pending = nil
}

// Committed returns the visible value for a key.
func (t *AssetTable[K, V]) Committed(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.visible[key]
	return v, ok
}

// Len returns the number of visible entries.
func (t *AssetTable[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.visible)
}

// pendingLocked returns the pending slot, cloning the visible mapping on
// first mutation since the last Commit. The caller must hold t.mu.
func (t *AssetTable[K, V]) pendingLocked() map[K]V {
	if t.pending == nil {
		t.pending = maps.Clone(t.visible)
	}
	return t.pending
}
