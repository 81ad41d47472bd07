package raster

import (
	"math"

	"github.com/banshee-data/mapcomposer/internal/geom"
)

// unknownFill is the background every canvas starts from: full alpha,
// mid-grey intensity, observed flag clear. Pixels no slice touches therefore
// quantise to the unknown sentinel.
const unknownFill = 0xFF7F0000

// paddingPixels is the margin added around the union bounding box.
const paddingPixels = 5

// Slice is one paintable submap: its resolved placement, its texture
// geometry, and the decoded surface. Surface is nil until a fetch succeeds;
// the painter skips such slices.
type Slice struct {
	Pose       geom.Rigid3
	SlicePose  geom.Rigid3
	Resolution float64
	Surface    *Surface
}

// PaintResult is the composite surface plus the pixel coordinates of the
// global-frame origin within it.
type PaintResult struct {
	Surface *Surface
	OriginX float64
	OriginY float64
}

// Painter merges slices into one canvas at the target resolution. The blend
// semantics and canvas sizing belong to the implementation; callers only
// choose the input set and resolution.
type Painter interface {
	Paint(slices []Slice, resolution float64) *PaintResult
}

// CanvasPainter is the reference Painter. It sizes the canvas to the union
// bounding box of all slice quads, fills it with the unknown background, and
// paints each slice with an inverse-mapped nearest-neighbour affine blit
// using the OVER operator.
type CanvasPainter struct{}

// sliceAffine maps texture pixel (u, v) to canvas coordinates before the
// origin translation:
//
//	x = (R10*r*u + R11*r*v + tx) / res
//	y = (R00*r*u + R01*r*v - ty) / res
//
// where r is the slice's own resolution and R, t come from pose * slicePose.
// The axis swap and the negated ty follow the map image convention of the
// upstream mapping stack (image x grows with world y).
type sliceAffine struct {
	a, b, c, d float64 // linear part
	e, f       float64 // translation, origin included once known
}

func newSliceAffine(s Slice, scale float64) sliceAffine {
	world := s.Pose.Mul(s.SlicePose)
	m := world.RotationMatrix()
	r := s.Resolution
	return sliceAffine{
		a: m[3] * r * scale,
		b: m[4] * r * scale,
		c: m[0] * r * scale,
		d: m[1] * r * scale,
		e: world.Translation.X * scale,
		f: -world.Translation.Y * scale,
	}
}

func (t sliceAffine) apply(u, v float64) (float64, float64) {
	return t.a*u + t.b*v + t.e, t.c*u + t.d*v + t.f
}

// Paint implements Painter.
func (CanvasPainter) Paint(slices []Slice, resolution float64) *PaintResult {
	scale := 1.0 / resolution

	// First pass: union bounding box of every slice quad in canvas space.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	extend := func(x, y float64) {
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	for _, s := range slices {
		if s.Surface == nil {
			continue
		}
		t := newSliceAffine(s, scale)
		w, h := float64(s.Surface.Width), float64(s.Surface.Height)
		for _, c := range [4][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
			extend(t.apply(c[0], c[1]))
		}
	}

	if minX > maxX {
		// Nothing paintable; emit a padding-only unknown canvas.
		canvas := NewSurface(2*paddingPixels, 2*paddingPixels)
		canvas.Fill(unknownFill)
		return &PaintResult{Surface: canvas, OriginX: paddingPixels, OriginY: paddingPixels}
	}

	width := int(math.Ceil(maxX-minX)) + 2*paddingPixels
	height := int(math.Ceil(maxY-minY)) + 2*paddingPixels
	originX := -minX + paddingPixels
	originY := -minY + paddingPixels

	canvas := NewSurface(width, height)
	canvas.Fill(unknownFill)

	for _, s := range slices {
		if s.Surface == nil {
			continue
		}
		t := newSliceAffine(s, scale)
		t.e += originX
		t.f += originY
		paintSlice(canvas, s.Surface, t)
	}

	return &PaintResult{Surface: canvas, OriginX: originX, OriginY: originY}
}

// paintSlice inverse-maps every canvas pixel inside the slice's transformed
// quad back to a source pixel and blends it over the canvas.
func paintSlice(canvas, src *Surface, t sliceAffine) {
	det := t.a*t.d - t.b*t.c
	if math.Abs(det) < 1e-12 {
		return
	}

	w, h := float64(src.Width), float64(src.Height)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		x, y := t.apply(c[0], c[1])
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}

	x0 := clampInt(int(math.Floor(minX)), 0, canvas.Width)
	x1 := clampInt(int(math.Ceil(maxX))+1, 0, canvas.Width)
	y0 := clampInt(int(math.Floor(minY)), 0, canvas.Height)
	y1 := clampInt(int(math.Ceil(maxY))+1, 0, canvas.Height)

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - t.e
			dy := float64(y) + 0.5 - t.f
			u := (t.d*dx - t.b*dy) / det
			v := (-t.c*dx + t.a*dy) / det
			su, sv := int(math.Floor(u)), int(math.Floor(v))
			if su < 0 || su >= src.Width || sv < 0 || sv >= src.Height {
				continue
			}
			idx := y*canvas.Width + x
			canvas.Pix[idx] = blendOver(canvas.Pix[idx], src.Pix[sv*src.Width+su])
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
