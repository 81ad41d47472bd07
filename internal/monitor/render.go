package monitor

import (
	"bytes"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/mapcomposer/internal/grid"
)

// gridXYZ adapts an occupancy grid to plotter.GridXYZ. Unknown cells map to
// NaN so the heat map leaves them blank. Axes are in meters, measured from
// the grid origin.
type gridXYZ struct {
	g *grid.OccupancyGrid
}

func (d gridXYZ) Dims() (c, r int) { return d.g.Info.Width, d.g.Info.Height }

func (d gridXYZ) Z(c, r int) float64 {
	v := d.g.Data[r*d.g.Info.Width+c]
	if v == grid.UnknownCell {
		return math.NaN()
	}
	return float64(v)
}

func (d gridXYZ) X(c int) float64 { return float64(c) * d.g.Info.Resolution }
func (d gridXYZ) Y(r int) float64 { return float64(r) * d.g.Info.Resolution }

// RenderPNG draws the occupancy grid as a heat map PNG.
func RenderPNG(g *grid.OccupancyGrid) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Occupancy Grid"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	hm := plotter.NewHeatMap(gridXYZ{g: g}, palette.Heat(16, 255))
	hm.Min = 0
	hm.Max = 100
	p.Add(hm)

	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
