package grid

import (
	"fmt"
	"math"

	"github.com/banshee-data/mapcomposer/internal/raster"
)

// Quantize converts a composite surface into an occupancy grid. It is a pure
// function of its inputs: identical pixels produce byte-identical Data.
//
// Cells are emitted scanning y from height-1 down to 0 and x ascending, so
// the image bottom row comes first. A pixel whose observed byte is zero maps
// to UnknownCell; otherwise the value is round((1 - color/255) * 100), with
// darker pixels meaning higher occupancy. A computed value outside
// [-1, 100] means the surface encoding is corrupt upstream; it is reported
// as an error, never clamped.
func Quantize(surface *raster.Surface, originX, originY, resolution float64, header Header) (*OccupancyGrid, error) {
	width, height := surface.Width, surface.Height

	og := &OccupancyGrid{
		Header: header,
		Info: Info{
			MapLoadTime: header.Stamp,
			Resolution:  resolution,
			Width:       width,
			Height:      height,
			Origin: Pose{
				Position:    [3]float64{-originX * resolution, (-float64(height) + originY) * resolution, 0},
				Orientation: [4]float64{0, 0, 0, 1},
			},
		},
		Data: make([]int8, 0, width*height),
	}

	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			packed := surface.Pix[y*width+x]
			value, err := quantizeCell(packed)
			if err != nil {
				return nil, fmt.Errorf("cell (%d, %d): %w", x, y, err)
			}
			og.Data = append(og.Data, value)
		}
	}
	return og, nil
}

// quantizeCell maps one packed pixel to a cell value.
func quantizeCell(packed uint32) (int8, error) {
	observed := (packed >> 8) & 0xff
	if observed == 0 {
		return UnknownCell, nil
	}
	color := float64((packed >> 16) & 0xff)
	value := int(math.Round((1 - color/255) * 100))
	if value < UnknownCell || value > 100 {
		return 0, fmt.Errorf("occupancy value %d out of range [-1, 100] (pixel %#x)", value, packed)
	}
	return int8(value), nil
}
