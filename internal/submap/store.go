package submap

import (
	"sync"
	"time"

	"github.com/banshee-data/mapcomposer/internal/geom"
)

// Store is the in-memory slice cache. One mutex serialises reconciliation
// passes against compositor snapshot reads; the reconciler runs a whole pass
// inside Exclusive, the compositor takes a Snapshot and releases.
type Store struct {
	mu            sync.Mutex
	slices        map[ID]*Slice
	lastFrameID   string
	lastTimestamp time.Time
}

// NewStore creates an empty slice store.
func NewStore() *Store {
	return &Store{slices: make(map[ID]*Slice)}
}

// Tx exposes the store's operations to a caller already holding the lock.
// It must not escape the Exclusive callback.
type Tx struct {
	s *Store
}

// Exclusive runs fn with the store lock held for the whole call.
func (s *Store) Exclusive(fn func(tx Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(Tx{s: s})
}

// Upsert creates the entry if absent, otherwise updates only its pose and
// advertised metadata version. The fetch-gated Content is never touched.
// Returns the entry so callers can read freshness back.
func (tx Tx) Upsert(id ID, pose geom.Rigid3, metadataVersion int) *Slice {
	sl, ok := tx.s.slices[id]
	if !ok {
		sl = &Slice{}
		tx.s.slices[id] = sl
	}
	sl.Pose = pose
	sl.MetadataVersion = metadataVersion
	return sl
}

// ApplyFetchResult installs fetched content on an existing entry. If the
// identity has been pruned since the fetch started the result is silently
// discarded and false is returned; the entry is never resurrected.
func (tx Tx) ApplyFetchResult(id ID, content *Content) bool {
	sl, ok := tx.s.slices[id]
	if !ok {
		return false
	}
	sl.Content = content
	return true
}

// PruneExcept deletes every entry whose identity is not in keep.
func (tx Tx) PruneExcept(keep map[ID]struct{}) {
	for id := range tx.s.slices {
		if _, ok := keep[id]; !ok {
			delete(tx.s.slices, id)
		}
	}
}

// SetLastList records the frame label and timestamp of the latest
// notification. Overwritten unconditionally on every pass.
func (tx Tx) SetLastList(frameID string, ts time.Time) {
	tx.s.lastFrameID = frameID
	tx.s.lastTimestamp = ts
}

// IDs returns the current identity set.
func (tx Tx) IDs() map[ID]struct{} {
	ids := make(map[ID]struct{}, len(tx.s.slices))
	for id := range tx.s.slices {
		ids[id] = struct{}{}
	}
	return ids
}

// Get returns the entry for id, or nil.
func (tx Tx) Get(id ID) *Slice { return tx.s.slices[id] }

// Len returns the number of cached slices.
func (tx Tx) Len() int { return len(tx.s.slices) }

// SnapshotSlice is one entry of a compositor snapshot: the slice header by
// value plus a reference to its immutable content.
type SnapshotSlice struct {
	ID      ID
	Pose    geom.Rigid3
	Content *Content
}

// Snapshot is a consistent read view for one compositor pass.
type Snapshot struct {
	Slices    []SnapshotSlice
	FrameID   string
	Timestamp time.Time
}

// Snapshot copies the slice headers and the last-notification fields under
// the lock. Pixel buffers are shared, not copied: ApplyFetchResult installs
// fresh Content values and never mutates old ones, so everything a snapshot
// references stays immutable after release.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Slices:    make([]SnapshotSlice, 0, len(s.slices)),
		FrameID:   s.lastFrameID,
		Timestamp: s.lastTimestamp,
	}
	for id, sl := range s.slices {
		snap.Slices = append(snap.Slices, SnapshotSlice{ID: id, Pose: sl.Pose, Content: sl.Content})
	}
	return snap
}

// Len returns the number of cached slices.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slices)
}
