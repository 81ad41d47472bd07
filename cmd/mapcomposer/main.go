// mapcomposer consumes a mapping backend's submap stream, keeps an
// up-to-date cache of submap slices, and periodically composes them into a
// single occupancy grid served over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/mapcomposer/internal/archive"
	"github.com/banshee-data/mapcomposer/internal/compositor"
	"github.com/banshee-data/mapcomposer/internal/config"
	"github.com/banshee-data/mapcomposer/internal/feed"
	"github.com/banshee-data/mapcomposer/internal/monitor"
	"github.com/banshee-data/mapcomposer/internal/publish"
	"github.com/banshee-data/mapcomposer/internal/submap"
)

var (
	configPath    = flag.String("config", "", "Path to JSON config file")
	listen        = flag.String("listen", "", "Listen address (overrides config)")
	backendURL    = flag.String("backend", "", "Mapping backend base URL (overrides config)")
	backendWSURL  = flag.String("backend-ws", "", "Submap list WebSocket URL (overrides config)")
	resolution    = flag.Float64("resolution", 0, "Output grid resolution in meters (overrides config)")
	publishPeriod = flag.Duration("publish-period", 0, "Compositing interval (overrides config)")
	archivePath   = flag.String("archive", "", "Grid archive database path (overrides config)")
)

func main() {
	flag.Parse()

	cfg := config.EmptyNodeConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadNodeConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	// Flags take precedence over the config file.
	listenAddr := cfg.GetListen()
	if *listen != "" {
		listenAddr = *listen
	}
	backend := cfg.GetBackendURL()
	if *backendURL != "" {
		backend = *backendURL
	}
	backendWS := cfg.GetBackendWSURL()
	if *backendWSURL != "" {
		backendWS = *backendWSURL
	}
	res := cfg.GetResolution()
	if *resolution > 0 {
		res = *resolution
	}
	period := cfg.GetPublishPeriod()
	if *publishPeriod > 0 {
		period = *publishPeriod
	}
	archiveDB := cfg.GetArchivePath()
	if *archivePath != "" {
		archiveDB = *archivePath
	}

	store := submap.NewStore()
	publisher := publish.NewPublisher(nil)

	fetcher := feed.NewHTTPFetcher(&http.Client{Timeout: cfg.GetFetchTimeout()}, backend)
	reconciler := submap.NewReconciler(submap.ReconcilerConfig{
		Store:   store,
		Fetcher: fetcher,
		Gate:    publisher,
	})

	subscriber := feed.NewSubscriber(feed.SubscriberConfig{
		URL:            backendWS,
		Handler:        reconciler.HandleList,
		ReconnectDelay: cfg.GetReconnectWait(),
		ReadTimeout:    cfg.GetReadTimeout(),
	})

	comp := compositor.New(compositor.Config{
		Store:      store,
		Sink:       publisher,
		Resolution: res,
		Period:     period,
	})

	var gridArchive *archive.GridArchive
	if archiveDB != "" {
		var err error
		gridArchive, err = archive.NewGridArchive(archiveDB)
		if err != nil {
			log.Fatalf("failed to open grid archive: %v", err)
		}
		defer gridArchive.Close()
	}

	webserver := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   listenAddr,
		Publisher: publisher,
		Store:     store,
		Archive:   gridArchive,
		Stream:    publisher.StreamHandler(),
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// consume submap-list notifications from the backend
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := subscriber.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("subscriber terminated: %v", err)
		}
		log.Print("subscriber routine terminated")
	}()

	// compose and publish the grid on a timer
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := comp.Run(ctx); err != nil {
			log.Printf("compositor terminated: %v", err)
		}
		log.Print("compositor routine terminated")
	}()

	// archive published grids when an archive is configured
	if gridArchive != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, c := publisher.Subscribe()
			defer publisher.Unsubscribe(id)
			for {
				select {
				case g := <-c:
					if g == nil {
						return
					}
					if _, err := gridArchive.RecordGrid(g); err != nil {
						log.Printf("failed to archive grid: %v", err)
					}
				case <-ctx.Done():
					log.Print("archive routine terminated")
					return
				}
			}
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webserver.Start(ctx); err != nil {
			log.Printf("web server terminated: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
