package publish

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// StreamHandler returns an HTTP handler that upgrades to WebSocket and
// streams every published grid as one JSON message per publish cycle. Each
// connection counts as a listener for the reconciler gate from upgrade to
// close.
func (p *Publisher) StreamHandler() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 256 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, grids := p.Subscribe()
		defer p.Unsubscribe(id)

		// Reader goroutine: we expect no client messages, but reading is
		// required to notice the close handshake.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case g, ok := <-grids:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(g); err != nil {
					p.logger.Printf("[Publisher] websocket write to %s failed: %v", id, err)
					return
				}
			}
		}
	}
}
