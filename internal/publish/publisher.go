// Package publish fans published occupancy grids out to in-process
// subscribers and WebSocket clients. Its subscriber count doubles as the
// reconciler's listener-present gate: with nobody listening, upstream skips
// the work of keeping the cache warm.
package publish

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/banshee-data/mapcomposer/internal/grid"
)

// subscriberBuffer is the per-subscriber channel depth; slow consumers drop
// grids rather than stall the compositor.
const subscriberBuffer = 4

// Publisher broadcasts grids to registered subscribers.
type Publisher struct {
	logger *log.Logger

	mu      sync.RWMutex
	clients map[string]chan *grid.OccupancyGrid
	latest  *grid.OccupancyGrid

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewPublisher creates a Publisher. logger may be nil.
func NewPublisher(logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		logger:  logger,
		clients: make(map[string]chan *grid.OccupancyGrid),
	}
}

// Subscribe registers a consumer and returns its id and receive channel.
func (p *Publisher) Subscribe() (string, <-chan *grid.OccupancyGrid) {
	id := uuid.NewString()
	ch := make(chan *grid.OccupancyGrid, subscriberBuffer)

	p.mu.Lock()
	p.clients[id] = ch
	n := len(p.clients)
	p.mu.Unlock()

	p.logger.Printf("[Publisher] subscriber %s connected (total: %d)", id, n)
	return id, ch
}

// Unsubscribe removes a consumer. Safe to call with an unknown id.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	ch, ok := p.clients[id]
	if ok {
		delete(p.clients, id)
	}
	n := len(p.clients)
	p.mu.Unlock()

	if ok {
		close(ch)
		p.logger.Printf("[Publisher] subscriber %s disconnected (remaining: %d)", id, n)
	}
}

// SubscriberCount implements the reconciler's ListenerGate.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// Publish delivers g to every subscriber without blocking and retains it as
// the latest grid for the monitor endpoints.
func (p *Publisher) Publish(g *grid.OccupancyGrid) {
	p.mu.Lock()
	p.latest = g
	for id, ch := range p.clients {
		select {
		case ch <- g:
		default:
			p.dropped.Add(1)
			p.logger.Printf("[Publisher] subscriber %s slow, grid dropped", id)
		}
	}
	p.mu.Unlock()
	p.published.Add(1)
}

// Latest returns the most recently published grid, or nil.
func (p *Publisher) Latest() *grid.OccupancyGrid {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Stats contains publisher counters.
type Stats struct {
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

// Stats returns current counters.
func (p *Publisher) Stats() Stats {
	return Stats{
		Published:   p.published.Load(),
		Dropped:     p.dropped.Load(),
		Subscribers: p.SubscriberCount(),
	}
}
