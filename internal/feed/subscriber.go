package feed

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/mapcomposer/internal/submap"
)

// ListHandler consumes one decoded submap-list notification.
// Reconciler.HandleList satisfies this signature.
type ListHandler func(ctx context.Context, list *submap.List) error

// Subscriber maintains a WebSocket subscription to the backend's submap-list
// stream and hands every notification to its handler. Connection loss is
// absorbed with a reconnect delay; the loop only ends with the context.
type Subscriber struct {
	url            string
	handler        ListHandler
	reconnectDelay time.Duration
	readTimeout    time.Duration
	logger         *log.Logger
}

// SubscriberConfig contains configuration for Subscriber.
type SubscriberConfig struct {
	// URL is the WebSocket endpoint of the submap-list stream.
	URL string
	// Handler receives each decoded notification.
	Handler ListHandler
	// ReconnectDelay is the pause between connection attempts (default 2s).
	ReconnectDelay time.Duration
	// ReadTimeout bounds each read so context cancellation is noticed even
	// on a silent backend (default 30s).
	ReadTimeout time.Duration
	// Logger is optional; if nil, uses log.Default()
	Logger *log.Logger
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	return &Subscriber{
		url:            cfg.URL,
		handler:        cfg.Handler,
		reconnectDelay: delay,
		readTimeout:    readTimeout,
		logger:         logger,
	}
}

// Run connects and consumes notifications until the context is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	s.logger.Printf("[Feed] subscribing to submap list at %s", s.url)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			s.logger.Printf("[Feed] subscription lost: %v (reconnecting in %v)", err, s.reconnectDelay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

// consume runs one connection until it fails or the context ends.
func (s *Subscriber) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the connection when the context ends so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Printf("[Feed] connected to %s", s.url)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg SubmapListMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Printf("[Feed] skipping malformed notification: %v", err)
			continue
		}

		if err := s.handler(ctx, msg.List()); err != nil {
			s.logger.Printf("[Feed] notification pass failed: %v", err)
		}
	}
}
