// Package geom provides the rigid-transform math shared by the submap cache
// and the compositor.
package geom

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rigid3 is a 3D rigid transform: a rotation followed by a translation.
// The rotation is a unit quaternion; callers constructing one from wire data
// should pass it through Normalized to absorb serialisation rounding.
type Rigid3 struct {
	Translation r3.Vec
	Rotation    quat.Number
}

// Identity returns the identity transform.
func Identity() Rigid3 {
	return Rigid3{Rotation: quat.Number{Real: 1}}
}

// NewRigid3 builds a transform from a translation and quaternion components
// in (w, x, y, z) order.
func NewRigid3(tx, ty, tz, qw, qx, qy, qz float64) Rigid3 {
	return Rigid3{
		Translation: r3.Vec{X: tx, Y: ty, Z: tz},
		Rotation:    quat.Number{Real: qw, Imag: qx, Jmag: qy, Kmag: qz},
	}
}

// Normalized returns the transform with its rotation scaled to unit length.
// A zero quaternion is replaced by the identity rotation.
func (t Rigid3) Normalized() Rigid3 {
	n := quat.Abs(t.Rotation)
	if n == 0 {
		t.Rotation = quat.Number{Real: 1}
		return t
	}
	t.Rotation = quat.Scale(1/n, t.Rotation)
	return t
}

// Mul composes two transforms: (t.Mul(o)).Apply(p) == t.Apply(o.Apply(p)).
func (t Rigid3) Mul(o Rigid3) Rigid3 {
	return Rigid3{
		Translation: r3.Add(t.Translation, r3.Rotation(t.Rotation).Rotate(o.Translation)),
		Rotation:    quat.Mul(t.Rotation, o.Rotation),
	}
}

// Apply transforms a point.
func (t Rigid3) Apply(p r3.Vec) r3.Vec {
	return r3.Add(r3.Rotation(t.Rotation).Rotate(p), t.Translation)
}

// RotationMatrix returns the 3x3 rotation matrix in row-major order.
func (t Rigid3) RotationMatrix() [9]float64 {
	w, x, y, z := t.Rotation.Real, t.Rotation.Imag, t.Rotation.Jmag, t.Rotation.Kmag
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

func (t Rigid3) String() string {
	return fmt.Sprintf("t=(%.3f,%.3f,%.3f) q=(%.3f,%.3f,%.3f,%.3f)",
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		t.Rotation.Real, t.Rotation.Imag, t.Rotation.Jmag, t.Rotation.Kmag)
}
