package feed

import (
	"bytes"
	"math"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func compressCells(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeCellsSplitsPlanes(t *testing.T) {
	// Two pixels: (intensity 10, alpha 20) and (intensity 30, alpha 40).
	cells := compressCells(t, []byte{10, 20, 30, 40})

	intensity, alpha, err := DecodeCells(cells, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if intensity[0] != 10 || intensity[1] != 30 {
		t.Errorf("intensity = %v", intensity)
	}
	if alpha[0] != 20 || alpha[1] != 40 {
		t.Errorf("alpha = %v", alpha)
	}
}

func TestDecodeCellsRejectsWrongLength(t *testing.T) {
	cells := compressCells(t, []byte{1, 2, 3, 4})
	if _, _, err := DecodeCells(cells, 3, 1); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestDecodeCellsRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeCells([]byte{0xde, 0xad}, 1, 1); err == nil {
		t.Error("expected error for non-gzip input")
	}
}

func TestSubmapListConversion(t *testing.T) {
	msg := &SubmapListMsg{
		Header: HeaderMsg{StampUnixNanos: 1_500_000_000, FrameID: "map"},
		Submaps: []SubmapEntryMsg{
			{
				TrajectoryID:  1,
				SubmapIndex:   4,
				Pose:          PoseMsg{Position: [3]float64{1, 2, 3}, Orientation: [4]float64{0, 0, 0, 1}},
				SubmapVersion: 7,
			},
		},
	}

	list := msg.List()
	if list.FrameID != "map" {
		t.Errorf("frame = %q", list.FrameID)
	}
	if list.Timestamp.UnixNano() != 1_500_000_000 {
		t.Errorf("timestamp = %v", list.Timestamp)
	}
	if len(list.Entries) != 1 {
		t.Fatalf("entries = %d", len(list.Entries))
	}
	e := list.Entries[0]
	if e.ID.TrajectoryID != 1 || e.ID.SubmapIndex != 4 || e.MetadataVersion != 7 {
		t.Errorf("entry = %+v", e)
	}
	if e.Pose.Translation.X != 1 || e.Pose.Translation.Y != 2 {
		t.Errorf("pose translation = %+v", e.Pose.Translation)
	}
}

func TestPoseMsgNormalisesQuaternion(t *testing.T) {
	// Wire quaternions arrive with rounding; conversion must renormalise.
	p := PoseMsg{Orientation: [4]float64{0, 0, 0.7072, 0.7072}}
	r := p.Rigid3()
	n := math.Sqrt(r.Rotation.Real*r.Rotation.Real +
		r.Rotation.Imag*r.Rotation.Imag +
		r.Rotation.Jmag*r.Rotation.Jmag +
		r.Rotation.Kmag*r.Rotation.Kmag)
	if math.Abs(n-1) > 1e-12 {
		t.Errorf("quaternion norm = %v, want 1", n)
	}
}
