package submap

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/banshee-data/mapcomposer/internal/geom"
)

// mockFetcher implements TextureFetcher with scripted per-identity results.
type mockFetcher struct {
	results map[ID]*FetchedTextures
	errs    map[ID]error
	calls   []ID
}

func (m *mockFetcher) Fetch(_ context.Context, id ID) (*FetchedTextures, error) {
	m.calls = append(m.calls, id)
	if err, ok := m.errs[id]; ok {
		return nil, err
	}
	if res, ok := m.results[id]; ok {
		return res, nil
	}
	return nil, errors.New("no textures available")
}

func (m *mockFetcher) callCount(id ID) int {
	n := 0
	for _, c := range m.calls {
		if c == id {
			n++
		}
	}
	return n
}

// mockGate implements ListenerGate.
type mockGate struct{ n int }

func (g *mockGate) SubscriberCount() int { return g.n }

func fetchedTex(version int) *FetchedTextures {
	return &FetchedTextures{
		Version: version,
		Textures: []Texture{{
			Pixels:     TexturePixels{Intensity: []byte{100}, Alpha: []byte{255}},
			Width:      1,
			Height:     1,
			Resolution: 0.05,
			SlicePose:  geom.Identity(),
		}},
	}
}

func notification(entries ...ListEntry) *List {
	return &List{FrameID: "map", Timestamp: time.Unix(42, 0), Entries: entries}
}

func entry(traj, idx, version int) ListEntry {
	return ListEntry{ID: ID{traj, idx}, Pose: geom.Identity(), MetadataVersion: version}
}

func newTestReconciler(store *Store, f TextureFetcher, gate ListenerGate) *Reconciler {
	return NewReconciler(ReconcilerConfig{
		Store:   store,
		Fetcher: f,
		Gate:    gate,
		Logger:  log.New(&bytes.Buffer{}, "", 0),
	})
}

func storeIDs(s *Store) map[ID]struct{} {
	ids := make(map[ID]struct{})
	for _, sl := range s.Snapshot().Slices {
		ids[sl.ID] = struct{}{}
	}
	return ids
}

func TestKeySetTracksNotification(t *testing.T) {
	store := NewStore()
	fetcher := &mockFetcher{results: map[ID]*FetchedTextures{
		{0, 0}: fetchedTex(1),
		{0, 1}: fetchedTex(1),
	}}
	r := newTestReconciler(store, fetcher, nil)

	if err := r.HandleList(context.Background(), notification(entry(0, 0, 1), entry(0, 1, 1))); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	want := map[ID]struct{}{{0, 0}: {}, {0, 1}: {}}
	got := storeIDs(store)
	if len(got) != len(want) {
		t.Fatalf("store ids = %v, want %v", got, want)
	}

	// Second notification drops (0,1) and bumps (0,0); the key set must
	// follow exactly even though the (0,0) refetch is triggered.
	if err := r.HandleList(context.Background(), notification(entry(0, 0, 2))); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	got = storeIDs(store)
	if len(got) != 1 {
		t.Fatalf("store ids after shrink = %v", got)
	}
	if _, ok := got[ID{0, 0}]; !ok {
		t.Error("(0,0) missing after second notification")
	}
	if fetcher.callCount(ID{0, 0}) != 2 {
		t.Errorf("(0,0) fetched %d times, want 2 (version changed)", fetcher.callCount(ID{0, 0}))
	}
}

func TestKeySetTracksNotificationDespiteFetchFailures(t *testing.T) {
	store := NewStore()
	fetcher := &mockFetcher{} // every fetch fails
	r := newTestReconciler(store, fetcher, nil)

	if err := r.HandleList(context.Background(), notification(entry(1, 0, 1))); err != nil {
		t.Fatalf("fetch failure must not fail the pass: %v", err)
	}

	snap := store.Snapshot()
	if len(snap.Slices) != 1 {
		t.Fatalf("entry must survive a failed fetch, store has %d", len(snap.Slices))
	}
	if snap.Slices[0].Content != nil {
		t.Error("failed fetch must leave content absent")
	}
	if snap.FrameID != "map" || snap.Timestamp.IsZero() {
		t.Error("frame label and timestamp must be recorded even when fetches fail")
	}
}

func TestUnchangedVersionDoesNotRefetch(t *testing.T) {
	store := NewStore()
	fetcher := &mockFetcher{results: map[ID]*FetchedTextures{{0, 0}: fetchedTex(1)}}
	r := newTestReconciler(store, fetcher, nil)

	n := notification(entry(0, 0, 1))
	if err := r.HandleList(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	if err := r.HandleList(context.Background(), n); err != nil {
		t.Fatal(err)
	}

	if got := fetcher.callCount(ID{0, 0}); got != 1 {
		t.Errorf("fresh slice refetched: %d calls, want 1", got)
	}
}

func TestFetchFailureLeavesFreshEntryIntact(t *testing.T) {
	store := NewStore()
	fetcher := &mockFetcher{results: map[ID]*FetchedTextures{{0, 0}: fetchedTex(1)}}
	r := newTestReconciler(store, fetcher, nil)

	if err := r.HandleList(context.Background(), notification(entry(0, 0, 1))); err != nil {
		t.Fatal(err)
	}
	before := store.Snapshot().Slices[0].Content
	if before == nil {
		t.Fatal("expected content after first pass")
	}

	// Version bumps to 2 but the refetch fails: pose/metadata advance,
	// content stays exactly as it was.
	delete(fetcher.results, ID{0, 0})
	bumped := notification(ListEntry{ID: ID{0, 0}, Pose: geom.NewRigid3(9, 0, 0, 1, 0, 0, 0), MetadataVersion: 2})
	if err := r.HandleList(context.Background(), bumped); err != nil {
		t.Fatal(err)
	}

	snap := store.Snapshot()
	if snap.Slices[0].Content != before {
		t.Error("failed refetch corrupted existing content")
	}
	if snap.Slices[0].Pose.Translation.X != 9 {
		t.Error("pose must advance even when the refetch fails")
	}
}

func TestListenerGateSkipsPass(t *testing.T) {
	store := NewStore()
	fetcher := &mockFetcher{results: map[ID]*FetchedTextures{{0, 0}: fetchedTex(1)}}
	gate := &mockGate{n: 0}
	r := newTestReconciler(store, fetcher, gate)

	if err := r.HandleList(context.Background(), notification(entry(0, 0, 1))); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 || len(fetcher.calls) != 0 {
		t.Error("pass with no listeners must be a strict no-op")
	}

	gate.n = 1
	if err := r.HandleList(context.Background(), notification(entry(0, 0, 1))); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Error("pass with a listener must reconcile")
	}
}

func TestEmptyTextureSetAbortsPass(t *testing.T) {
	store := NewStore()
	fetcher := &mockFetcher{results: map[ID]*FetchedTextures{
		{0, 0}: {Version: 1, Textures: nil},
	}}
	r := newTestReconciler(store, fetcher, nil)

	err := r.HandleList(context.Background(), notification(entry(0, 0, 1)))
	if !errors.Is(err, ErrNoTextures) {
		t.Fatalf("err = %v, want ErrNoTextures", err)
	}
}

func TestOnlyFirstTextureConsumed(t *testing.T) {
	store := NewStore()
	res := fetchedTex(1)
	res.Textures = append(res.Textures, Texture{
		Pixels: TexturePixels{Intensity: []byte{0, 0, 0, 0}, Alpha: []byte{0, 0, 0, 0}},
		Width:  2, Height: 2, Resolution: 0.10, SlicePose: geom.Identity(),
	})
	fetcher := &mockFetcher{results: map[ID]*FetchedTextures{{0, 0}: res}}
	r := newTestReconciler(store, fetcher, nil)

	if err := r.HandleList(context.Background(), notification(entry(0, 0, 1))); err != nil {
		t.Fatal(err)
	}
	content := store.Snapshot().Slices[0].Content
	if content.Width != 1 || content.Resolution != 0.05 {
		t.Errorf("content geometry %dx%d @%v, want the first texture's 1x1 @0.05",
			content.Width, content.Height, content.Resolution)
	}
}
