// Package compositor runs the periodic draw-and-publish cycle: snapshot the
// slice cache, paint every fetched slice onto one canvas, quantize the
// canvas into an occupancy grid, and hand it to the publish sink.
package compositor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/mapcomposer/internal/grid"
	"github.com/banshee-data/mapcomposer/internal/raster"
	"github.com/banshee-data/mapcomposer/internal/submap"
)

// GridSink receives one occupancy grid per completed cycle.
// Publisher implements this interface.
type GridSink interface {
	Publish(*grid.OccupancyGrid)
}

// Compositor drives the fixed-period publish loop. It provides
// context-aware lifecycle management for the draw cycle.
type Compositor struct {
	store      *submap.Store
	painter    raster.Painter
	sink       GridSink
	resolution float64
	period     time.Duration
	logger     *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config contains configuration for Compositor.
type Config struct {
	// Store is the slice cache to composite from.
	Store *submap.Store
	// Painter merges slices into a canvas. If nil, the reference
	// CanvasPainter is used.
	Painter raster.Painter
	// Sink receives published grids.
	Sink GridSink
	// Resolution is the output cell size in meters per pixel.
	Resolution float64
	// Period is the publish interval (e.g. time.Second).
	Period time.Duration
	// Logger is optional; if nil, uses log.Default()
	Logger *log.Logger
}

// New creates a Compositor.
func New(cfg Config) *Compositor {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	painter := cfg.Painter
	if painter == nil {
		painter = raster.CanvasPainter{}
	}
	return &Compositor{
		store:      cfg.Store,
		painter:    painter,
		sink:       cfg.Sink,
		resolution: cfg.Resolution,
		period:     cfg.Period,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Run starts the periodic publish loop. It blocks until the context is
// cancelled or Stop() is called. Returns nil on clean shutdown.
func (c *Compositor) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil // already running
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	defer func() {
		close(c.doneCh)
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	if c.period <= 0 {
		c.logger.Printf("[Compositor] period is zero or negative, not starting")
		return nil
	}

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	c.logger.Printf("[Compositor] started: period=%v resolution=%.3fm", c.period, c.resolution)

	for {
		select {
		case <-ctx.Done():
			c.logger.Printf("[Compositor] stopping due to context cancellation")
			return nil
		case <-c.stopCh:
			c.logger.Printf("[Compositor] stopping due to Stop() call")
			return nil
		case <-ticker.C:
			c.DrawAndPublish()
		}
	}
}

// Stop requests the compositor to stop. It is safe to call multiple times.
func (c *Compositor) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	select {
	case <-c.stopCh:
		// already closed
	default:
		close(c.stopCh)
	}
	c.mu.Unlock()

	<-c.doneCh
}

// IsRunning returns whether the loop is currently running.
func (c *Compositor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// DrawAndPublish performs one cycle. It is a no-op while the cache is empty
// or no notification has ever been reconciled. The store lock is released
// before painting; the snapshot's pixel buffers are immutable so a
// concurrent reconciliation cannot disturb the paint.
func (c *Compositor) DrawAndPublish() {
	snap := c.store.Snapshot()
	if len(snap.Slices) == 0 || snap.FrameID == "" {
		return
	}

	slices := make([]raster.Slice, 0, len(snap.Slices))
	for _, sl := range snap.Slices {
		if sl.Content == nil {
			// Upserted but never successfully fetched; nothing to paint yet.
			continue
		}
		slices = append(slices, raster.Slice{
			Pose:       sl.Pose,
			SlicePose:  sl.Content.SlicePose,
			Resolution: sl.Content.Resolution,
			Surface:    sl.Content.Surface,
		})
	}

	painted := c.painter.Paint(slices, c.resolution)

	og, err := grid.Quantize(painted.Surface, painted.OriginX, painted.OriginY, c.resolution,
		grid.Header{Stamp: snap.Timestamp, FrameID: snap.FrameID})
	if err != nil {
		c.logger.Printf("[Compositor] quantization failed, skipping publish: %v", err)
		return
	}

	c.sink.Publish(og)
}
