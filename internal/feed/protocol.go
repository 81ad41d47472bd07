// Package feed connects the cache to the mapping backend: it subscribes to
// submap-list notifications over WebSocket and fetches submap textures over
// HTTP. Wire messages are JSON; texture cells travel as gzip-compressed
// interleaved (intensity, alpha) byte pairs.
package feed

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/mapcomposer/internal/geom"
	"github.com/banshee-data/mapcomposer/internal/submap"
)

// PoseMsg is a rigid transform on the wire: position in meters, orientation
// quaternion in (x, y, z, w) component order.
type PoseMsg struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

// Rigid3 converts the wire pose, normalising the quaternion to absorb
// serialisation rounding.
func (p PoseMsg) Rigid3() geom.Rigid3 {
	return geom.NewRigid3(
		p.Position[0], p.Position[1], p.Position[2],
		p.Orientation[3], p.Orientation[0], p.Orientation[1], p.Orientation[2],
	).Normalized()
}

// HeaderMsg carries the notification stamp and frame label.
type HeaderMsg struct {
	StampUnixNanos int64  `json:"stamp_unix_nanos"`
	FrameID        string `json:"frame_id"`
}

// SubmapEntryMsg is one tuple of a submap-list notification.
type SubmapEntryMsg struct {
	TrajectoryID  int     `json:"trajectory_id"`
	SubmapIndex   int     `json:"submap_index"`
	Pose          PoseMsg `json:"pose"`
	SubmapVersion int     `json:"submap_version"`
}

// SubmapListMsg is the inbound notification message.
type SubmapListMsg struct {
	Header  HeaderMsg        `json:"header"`
	Submaps []SubmapEntryMsg `json:"submaps"`
}

// List converts the wire message into the reconciler's input form.
func (m *SubmapListMsg) List() *submap.List {
	list := &submap.List{
		FrameID:   m.Header.FrameID,
		Timestamp: time.Unix(0, m.Header.StampUnixNanos),
		Entries:   make([]submap.ListEntry, 0, len(m.Submaps)),
	}
	for _, e := range m.Submaps {
		list.Entries = append(list.Entries, submap.ListEntry{
			ID:              submap.ID{TrajectoryID: e.TrajectoryID, SubmapIndex: e.SubmapIndex},
			Pose:            e.Pose.Rigid3(),
			MetadataVersion: e.SubmapVersion,
		})
	}
	return list
}

// TextureMsg is one texture of a submap-query response. Cells holds the
// gzip-compressed interleaved pixel pairs, base64-coded by JSON.
type TextureMsg struct {
	Cells      []byte  `json:"cells"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Resolution float64 `json:"resolution"`
	SlicePose  PoseMsg `json:"slice_pose"`
}

// SubmapQueryMsg is the submap-query response.
type SubmapQueryMsg struct {
	ErrorMessage  string       `json:"error_message,omitempty"`
	SubmapVersion int          `json:"submap_version"`
	Textures      []TextureMsg `json:"textures"`
}

// DecodeCells decompresses a texture's cell block and splits it into the
// intensity and alpha planes.
func DecodeCells(cells []byte, width, height int) (intensity, alpha []byte, err error) {
	zr, err := gzip.NewReader(bytes.NewReader(cells))
	if err != nil {
		return nil, nil, fmt.Errorf("open cell block: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress cell block: %w", err)
	}
	if want := 2 * width * height; len(raw) != want {
		return nil, nil, fmt.Errorf("cell block is %d bytes, want %d for %dx%d", len(raw), want, width, height)
	}

	n := width * height
	intensity = make([]byte, n)
	alpha = make([]byte, n)
	for i := 0; i < n; i++ {
		intensity[i] = raw[2*i]
		alpha[i] = raw[2*i+1]
	}
	return intensity, alpha, nil
}
