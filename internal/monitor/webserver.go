// Package monitor exposes the node's HTTP interface: health and status
// endpoints, the latest composed grid as JSON or PNG, and the grid stream.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/mapcomposer/internal/archive"
	"github.com/banshee-data/mapcomposer/internal/publish"
	"github.com/banshee-data/mapcomposer/internal/submap"
)

// WebServer handles the HTTP interface for monitoring the grid pipeline.
type WebServer struct {
	address   string
	publisher *publish.Publisher
	store     *submap.Store
	archive   *archive.GridArchive
	stream    http.Handler
	server    *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address   string
	Publisher *publish.Publisher
	Store     *submap.Store
	// Archive is optional; archive endpoints 404 when nil.
	Archive *archive.GridArchive
	// Stream is the WebSocket grid stream handler, mounted at /ws/grid.
	Stream http.Handler
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		publisher: config.Publisher,
		store:     config.Store,
		archive:   config.Archive,
		stream:    config.Stream,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server and blocks until the context is cancelled,
// then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/grid/status", ws.handleStatus)
	mux.HandleFunc("/api/grid/latest", ws.handleLatest)
	mux.HandleFunc("/api/grid/latest.png", ws.handleLatestPNG)
	mux.HandleFunc("/api/grid/archive", ws.handleArchive)
	if ws.stream != nil {
		mux.Handle("/ws/grid", ws.stream)
	}

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// StatusResponse summarises the pipeline for the status endpoint.
type StatusResponse struct {
	Submaps     int            `json:"submaps"`
	Publisher   publish.Stats  `json:"publisher"`
	LatestFrame string         `json:"latest_frame,omitempty"`
	LatestStamp *time.Time     `json:"latest_stamp,omitempty"`
	LatestSize  map[string]int `json:"latest_size,omitempty"`
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := StatusResponse{
		Submaps:   ws.store.Len(),
		Publisher: ws.publisher.Stats(),
	}
	if g := ws.publisher.Latest(); g != nil {
		resp.LatestFrame = g.Header.FrameID
		stamp := g.Header.Stamp
		resp.LatestStamp = &stamp
		resp.LatestSize = map[string]int{"width": g.Info.Width, "height": g.Info.Height}
	}

	json.NewEncoder(w).Encode(resp)
}

func (ws *WebServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	g := ws.publisher.Latest()
	if g == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no grid composed yet")
		return
	}
	json.NewEncoder(w).Encode(g)
}

func (ws *WebServer) handleLatestPNG(w http.ResponseWriter, r *http.Request) {
	g := ws.publisher.Latest()
	if g == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no grid composed yet")
		return
	}

	png, err := RenderPNG(g)
	if err != nil {
		log.Printf("[Monitor] grid render failed: %v", err)
		ws.writeJSONError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (ws *WebServer) handleArchive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if ws.archive == nil {
		ws.writeJSONError(w, http.StatusNotFound, "archiving is disabled")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			ws.writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := ws.archive.RecentGrids(limit)
	if err != nil {
		log.Printf("[Monitor] archive query failed: %v", err)
		ws.writeJSONError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	if records == nil {
		records = []archive.GridRecord{}
	}
	json.NewEncoder(w).Encode(records)
}
