package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/mapcomposer/internal/submap"
)

// HTTPFetcher implements submap.TextureFetcher against the mapping backend's
// submap-query endpoint. Every request is bounded by the client timeout (and
// the caller's context); failures are reported, never retried here.
type HTTPFetcher struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewHTTPFetcher creates a fetcher. httpClient may be nil.
func NewHTTPFetcher(httpClient *http.Client, baseURL string) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPFetcher{HTTPClient: httpClient, BaseURL: baseURL}
}

// Fetch implements submap.TextureFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, id submap.ID) (*submap.FetchedTextures, error) {
	url := fmt.Sprintf("%s/api/submap/%d/%d", f.BaseURL, id.TrajectoryID, id.SubmapIndex)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("submap query status %d: %s", resp.StatusCode, string(body))
	}

	var msg SubmapQueryMsg
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode submap query response: %w", err)
	}
	if msg.ErrorMessage != "" {
		return nil, fmt.Errorf("backend: %s", msg.ErrorMessage)
	}

	fetched := &submap.FetchedTextures{
		Version:  msg.SubmapVersion,
		Textures: make([]submap.Texture, 0, len(msg.Textures)),
	}
	for _, tex := range msg.Textures {
		intensity, alpha, err := DecodeCells(tex.Cells, tex.Width, tex.Height)
		if err != nil {
			return nil, fmt.Errorf("texture for %v: %w", id, err)
		}
		fetched.Textures = append(fetched.Textures, submap.Texture{
			Pixels:     submap.TexturePixels{Intensity: intensity, Alpha: alpha},
			Width:      tex.Width,
			Height:     tex.Height,
			Resolution: tex.Resolution,
			SlicePose:  tex.SlicePose.Rigid3(),
		})
	}
	return fetched, nil
}
