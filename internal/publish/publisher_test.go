package publish

import (
	"bytes"
	"log"
	"testing"

	"github.com/banshee-data/mapcomposer/internal/grid"
)

func quietPublisher() *Publisher {
	return NewPublisher(log.New(&bytes.Buffer{}, "", 0))
}

func testGrid(frame string) *grid.OccupancyGrid {
	return &grid.OccupancyGrid{
		Header: grid.Header{FrameID: frame},
		Info:   grid.Info{Width: 1, Height: 1, Resolution: 0.05},
		Data:   []int8{-1},
	}
}

func TestSubscriberCountGate(t *testing.T) {
	p := quietPublisher()
	if p.SubscriberCount() != 0 {
		t.Fatal("fresh publisher must report zero subscribers")
	}

	id, _ := p.Subscribe()
	if p.SubscriberCount() != 1 {
		t.Error("subscriber not counted")
	}

	p.Unsubscribe(id)
	if p.SubscriberCount() != 0 {
		t.Error("unsubscribe not counted down")
	}

	// Unknown id is a no-op.
	p.Unsubscribe("nope")
}

func TestPublishDeliversAndRetainsLatest(t *testing.T) {
	p := quietPublisher()
	_, ch := p.Subscribe()

	g := testGrid("map")
	p.Publish(g)

	select {
	case got := <-ch:
		if got != g {
			t.Error("subscriber received a different grid")
		}
	default:
		t.Fatal("grid not delivered")
	}

	if p.Latest() != g {
		t.Error("latest grid not retained")
	}
	if s := p.Stats(); s.Published != 1 || s.Dropped != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	p := quietPublisher()
	_, ch := p.Subscribe()

	for i := 0; i < subscriberBuffer+2; i++ {
		p.Publish(testGrid("map"))
	}

	if s := p.Stats(); s.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", s.Dropped)
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("channel depth = %d, want %d", len(ch), subscriberBuffer)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := quietPublisher()
	id, ch := p.Subscribe()
	p.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}
