package submap

import (
	"context"
	"fmt"
	"log"

	"github.com/banshee-data/mapcomposer/internal/raster"
)

// ListenerGate reports whether anyone is consuming published grids. With no
// listeners the reconciler skips the pass entirely to avoid fetch traffic;
// this is a cost policy, not a correctness requirement.
type ListenerGate interface {
	SubscriberCount() int
}

// Reconciler applies submap-list notifications to the slice store: it diffs
// the incoming identity set against the cache, refreshes poses and metadata
// versions, fetches textures for entries that are missing or stale, and
// prunes identities that disappeared.
type Reconciler struct {
	store   *Store
	fetcher TextureFetcher
	gate    ListenerGate
	logger  *log.Logger
}

// ReconcilerConfig contains the reconciler's collaborators.
type ReconcilerConfig struct {
	// Store is the slice cache to reconcile.
	Store *Store
	// Fetcher retrieves textures for stale entries.
	Fetcher TextureFetcher
	// Gate is optional; if nil, every notification is processed.
	Gate ListenerGate
	// Logger is optional; if nil, uses log.Default()
	Logger *log.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		store:   cfg.Store,
		fetcher: cfg.Fetcher,
		gate:    cfg.Gate,
		logger:  logger,
	}
}

// HandleList processes one notification snapshot. The whole pass runs under
// the store lock, so a concurrent compositor snapshot sees either the state
// before the pass or after it, never a partial update.
//
// Fetch failures are absorbed: the entry keeps its previous content (or none)
// and is retried on the next notification while it stays stale. A fetch that
// succeeds with an empty texture list violates the fetcher contract and
// aborts the pass.
func (r *Reconciler) HandleList(ctx context.Context, list *List) error {
	if r.gate != nil && r.gate.SubscriberCount() == 0 {
		return nil
	}

	var passErr error
	r.store.Exclusive(func(tx Tx) {
		keep := make(map[ID]struct{}, len(list.Entries))

		for _, entry := range list.Entries {
			keep[entry.ID] = struct{}{}

			sl := tx.Upsert(entry.ID, entry.Pose, entry.MetadataVersion)
			if sl.Fresh() {
				continue
			}

			fetched, err := r.fetcher.Fetch(ctx, entry.ID)
			if err != nil {
				// Stale entry stays as upserted; retried next pass.
				r.logger.Printf("[Reconciler] fetch %v failed: %v", entry.ID, err)
				continue
			}
			if len(fetched.Textures) == 0 {
				passErr = fmt.Errorf("submap %v: %w", entry.ID, ErrNoTextures)
				return
			}

			// Only the first texture is used. By convention this is the
			// highest resolution texture and that is the one we want for
			// the published map.
			tex := fetched.Textures[0]
			tx.ApplyFetchResult(entry.ID, &Content{
				Version:    fetched.Version,
				Width:      tex.Width,
				Height:     tex.Height,
				SlicePose:  tex.SlicePose,
				Resolution: tex.Resolution,
				Surface:    raster.DrawTexture(tex.Pixels.Intensity, tex.Pixels.Alpha, tex.Width, tex.Height),
			})
		}

		// Prune after all upserts so an identity reappearing mid-batch is
		// never transiently dropped.
		tx.PruneExcept(keep)
		tx.SetLastList(list.FrameID, list.Timestamp)
	})

	if passErr != nil {
		r.logger.Printf("[Reconciler] pass aborted: %v", passErr)
	}
	return passErr
}
