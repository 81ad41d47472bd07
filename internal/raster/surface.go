// Package raster owns the pixel-level types of the compositing pipeline: the
// packed-pixel Surface, texture decoding, and the canvas painter that merges
// submap slices into one surface.
package raster

// Surface is a width x height pixel buffer in packed premultiplied
// ARGB-style form. The channels carry map semantics rather than colour:
// bits 24-31 alpha, bits 16-23 intensity, bits 8-15 an observed flag
// (0 = the cell was never observed, 255 = observed at least once).
type Surface struct {
	Width  int
	Height int
	Pix    []uint32
}

// NewSurface allocates a zeroed surface.
func NewSurface(width, height int) *Surface {
	return &Surface{Width: width, Height: height, Pix: make([]uint32, width*height)}
}

// At returns the packed pixel at (x, y). Callers must stay in bounds.
func (s *Surface) At(x, y int) uint32 { return s.Pix[y*s.Width+x] }

// Fill sets every pixel to the packed value p.
func (s *Surface) Fill(p uint32) {
	for i := range s.Pix {
		s.Pix[i] = p
	}
}

// DrawTexture packs separate intensity and alpha byte planes into a Surface.
// Intensity lands in the red channel, the observed flag in the green channel:
// a cell counts as observed unless both its intensity and alpha are zero.
func DrawTexture(intensity, alpha []byte, width, height int) *Surface {
	s := NewSurface(width, height)
	for i := range intensity {
		iv := uint32(intensity[i])
		av := uint32(alpha[i])
		var observed uint32
		if iv != 0 || av != 0 {
			observed = 255
		}
		s.Pix[i] = av<<24 | iv<<16 | observed<<8
	}
	return s
}

// blendOver composites src over dst using premultiplied alpha, matching the
// OVER operator the reference renderer applies per channel.
func blendOver(dst, src uint32) uint32 {
	sa := src >> 24
	if sa == 255 {
		return src
	}
	if sa == 0 && src == 0 {
		return dst
	}
	inv := 255 - sa
	var out uint32
	for shift := uint(0); shift < 32; shift += 8 {
		d := (dst >> shift) & 0xff
		sc := (src >> shift) & 0xff
		c := sc + d*inv/255
		if c > 255 {
			c = 255
		}
		out |= c << shift
	}
	return out
}
