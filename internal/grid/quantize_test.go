package grid

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/mapcomposer/internal/raster"
)

func pixel(color, observed byte) uint32 {
	return 255<<24 | uint32(color)<<16 | uint32(observed)<<8
}

func TestQuantizeUnobservedIsUnknownForEveryColor(t *testing.T) {
	for c := 0; c < 256; c += 17 {
		v, err := quantizeCell(pixel(byte(c), 0))
		if err != nil {
			t.Fatalf("color %d: %v", c, err)
		}
		if v != UnknownCell {
			t.Errorf("color %d with observed=0: got %d, want %d", c, v, UnknownCell)
		}
	}
}

func TestQuantizeRangeEndpoints(t *testing.T) {
	if v, _ := quantizeCell(pixel(0, 255)); v != 100 {
		t.Errorf("black observed cell: got %d, want 100", v)
	}
	if v, _ := quantizeCell(pixel(255, 255)); v != 0 {
		t.Errorf("white observed cell: got %d, want 0", v)
	}
	if v, _ := quantizeCell(pixel(127, 255)); v != 50 {
		t.Errorf("mid-grey cell: got %d, want 50", v)
	}
}

func TestQuantizeScanOrderBottomRowFirst(t *testing.T) {
	// 2x2 surface; value encodes position so the scan order is visible.
	s := raster.NewSurface(2, 2)
	s.Pix[0] = pixel(255, 255) // (0,0) top-left -> 0
	s.Pix[1] = pixel(0, 255)   // (1,0) -> 100
	s.Pix[2] = pixel(127, 255) // (0,1) bottom-left -> 50
	s.Pix[3] = pixel(0, 0)     // (1,1) unobserved -> -1

	og, err := Quantize(s, 0, 0, 0.05, Header{FrameID: "map"})
	if err != nil {
		t.Fatal(err)
	}

	want := []int8{50, -1, 0, 100} // bottom row (y=1) first, x ascending
	if diff := cmp.Diff(want, og.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestQuantizeOriginPlacement(t *testing.T) {
	s := raster.NewSurface(3, 4)
	og, err := Quantize(s, 10, 6, 0.05, Header{})
	if err != nil {
		t.Fatal(err)
	}

	if got := og.Info.Origin.Position[0]; got != -10*0.05 {
		t.Errorf("origin x = %v, want %v", got, -10*0.05)
	}
	if got := og.Info.Origin.Position[1]; got != (-4.0+6)*0.05 {
		t.Errorf("origin y = %v, want %v", got, (-4.0+6)*0.05)
	}
	if og.Info.Origin.Orientation != [4]float64{0, 0, 0, 1} {
		t.Errorf("orientation = %v, want identity", og.Info.Origin.Orientation)
	}
	if og.Info.Width != 3 || og.Info.Height != 4 {
		t.Errorf("dimensions %dx%d, want 3x4", og.Info.Width, og.Info.Height)
	}
}

func TestQuantizeIsPure(t *testing.T) {
	s := raster.NewSurface(8, 8)
	for i := range s.Pix {
		s.Pix[i] = pixel(byte(i*3), byte((i%2)*255))
	}
	h := Header{Stamp: time.Unix(7, 0), FrameID: "map"}

	first, err := Quantize(s, 1, 2, 0.05, h)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Quantize(s, 1, 2, 0.05, h)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first.Data, second.Data); diff != "" {
		t.Errorf("repeated quantization differs:\n%s", diff)
	}
}

func TestQuantizeHeaderCopied(t *testing.T) {
	s := raster.NewSurface(1, 1)
	stamp := time.Unix(1234, 0)
	og, err := Quantize(s, 0, 0, 0.1, Header{Stamp: stamp, FrameID: "odom"})
	if err != nil {
		t.Fatal(err)
	}
	if og.Header.FrameID != "odom" || !og.Header.Stamp.Equal(stamp) {
		t.Errorf("header = %+v", og.Header)
	}
	if !og.Info.MapLoadTime.Equal(stamp) {
		t.Errorf("map load time = %v, want %v", og.Info.MapLoadTime, stamp)
	}
}
