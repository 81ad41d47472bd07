// Package grid defines the published occupancy-grid message and the
// quantizer that produces it from a composite surface.
package grid

import "time"

// UnknownCell is the sentinel for a cell that was never observed.
const UnknownCell = -1

// Header carries the stamp and coordinate frame of a published grid,
// copied from the last reconciled notification.
type Header struct {
	Stamp   time.Time `json:"stamp"`
	FrameID string    `json:"frame_id"`
}

// Pose is the grid origin placement: position in meters plus an orientation
// quaternion in (x, y, z, w) component order.
type Pose struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

// Info describes the grid geometry.
type Info struct {
	MapLoadTime time.Time `json:"map_load_time"`
	// Resolution is the cell size in meters per pixel.
	Resolution float64 `json:"resolution"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Origin     Pose    `json:"origin"`
}

// OccupancyGrid is one published map. Data holds Width*Height cells in
// row-major order with the image bottom row first; each value is an
// occupancy probability in [0, 100] or UnknownCell.
type OccupancyGrid struct {
	Header Header `json:"header"`
	Info   Info   `json:"info"`
	Data   []int8 `json:"data"`
}
