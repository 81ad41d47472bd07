package submap

import (
	"time"

	"github.com/banshee-data/mapcomposer/internal/geom"
	"github.com/banshee-data/mapcomposer/internal/raster"
)

// Content is the fetch-gated part of a cached slice. It is installed as a
// unit by a successful texture fetch and never partially written, which keeps
// the freshness invariant structural: a slice is fresh iff Content is non-nil
// and Content.Version matches the latest advertised MetadataVersion.
type Content struct {
	// Version is the texture version actually materialised here.
	Version int
	// Width and Height are the decoded texture dimensions in pixels.
	Width  int
	Height int
	// SlicePose maps the submap-local origin to the texture's pixel origin.
	SlicePose geom.Rigid3
	// Resolution is the texture's meters-per-pixel.
	Resolution float64
	// Surface is the decoded pixel buffer. Immutable once installed.
	Surface *raster.Surface
}

// Slice is one cached submap slice. Pose and MetadataVersion advance on
// every notification pass; Content only on successful fetches.
type Slice struct {
	Pose            geom.Rigid3
	MetadataVersion int
	Content         *Content
}

// Fresh reports whether the slice's materialised texture matches the latest
// advertised version. A slice that is not fresh is eligible for (re)fetch.
func (s *Slice) Fresh() bool {
	return s.Content != nil && s.Content.Version == s.MetadataVersion
}

// TexturePixels carries the two byte planes of one wire texture.
type TexturePixels struct {
	Intensity []byte
	Alpha     []byte
}

// Texture is one decoded texture from a submap query response.
type Texture struct {
	Pixels     TexturePixels
	Width      int
	Height     int
	Resolution float64
	SlicePose  geom.Rigid3
}

// FetchedTextures is a successful fetch result. The contract guarantees a
// non-empty texture list; only the first entry (highest resolution by
// upstream ordering) is consumed.
type FetchedTextures struct {
	Version  int
	Textures []Texture
}

// ListEntry is one tuple of an inbound submap-list notification.
type ListEntry struct {
	ID              ID
	Pose            geom.Rigid3
	MetadataVersion int
}

// List is an inbound submap-list notification snapshot.
type List struct {
	FrameID   string
	Timestamp time.Time
	Entries   []ListEntry
}
