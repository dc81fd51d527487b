// Package geom provides triangle mesh primitives for roof surface analysis.
//
// All coordinates are world-space meters with +Z as the building's up axis.
// Faces wound counter-clockwise when viewed from outside produce outward
// normals, so skyward surfaces carry Normal.Z > 0. That orientation
// convention is fixed here and relied on by every downstream tilt and
// azimuth computation.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DegenerateEpsilon is the cross-product magnitude below which a triangle
// is treated as zero-area. Collinear and coincident vertices fall under it.
const DegenerateEpsilon = 1e-12

// Triangle is a single mesh face: three vertices in world coordinates.
type Triangle struct {
	A, B, C r3.Vec
}

// Centroid returns the barycenter of the triangle.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1.0/3.0, r3.Add(r3.Add(t.A, t.B), t.C))
}

// FaceRecord holds the derived orientation and size of one triangle.
// Normal is unit length unless Degenerate is set, in which case Normal is
// the zero vector and Area is 0. Degenerate faces never produce NaN.
type FaceRecord struct {
	Normal     r3.Vec
	Area       float64
	Degenerate bool
}

// Upward reports whether the face points skyward under the package's
// orientation convention.
func (f FaceRecord) Upward() bool {
	return !f.Degenerate && f.Normal.Z > 0
}

// Face computes the unit normal and area of a triangle. The normal is the
// normalized cross product of the edge vectors (B-A) and (C-A); the area is
// half the cross-product magnitude.
func Face(t Triangle) FaceRecord {
	cross := r3.Cross(r3.Sub(t.B, t.A), r3.Sub(t.C, t.A))
	mag := r3.Norm(cross)
	if mag <= DegenerateEpsilon {
		return FaceRecord{Degenerate: true}
	}
	return FaceRecord{
		Normal: r3.Scale(1/mag, cross),
		Area:   mag / 2,
	}
}

// ExtractFaces computes a FaceRecord for every triangle in mesh order.
// Pure and deterministic: the same mesh always yields the same records.
func ExtractFaces(mesh []Triangle) []FaceRecord {
	faces := make([]FaceRecord, len(mesh))
	for i, t := range mesh {
		faces[i] = Face(t)
	}
	return faces
}

// TotalArea sums the areas of all non-degenerate faces.
func TotalArea(faces []FaceRecord) float64 {
	var sum float64
	for _, f := range faces {
		sum += f.Area
	}
	return sum
}

// Bounds returns the axis-aligned bounding box of a mesh. ok is false for
// an empty mesh, in which case min and max are zero vectors.
func Bounds(mesh []Triangle) (min, max r3.Vec, ok bool) {
	if len(mesh) == 0 {
		return r3.Vec{}, r3.Vec{}, false
	}
	min, max = mesh[0].A, mesh[0].A
	for _, t := range mesh {
		for _, p := range []r3.Vec{t.A, t.B, t.C} {
			min.X = math.Min(min.X, p.X)
			min.Y = math.Min(min.Y, p.Y)
			min.Z = math.Min(min.Z, p.Z)
			max.X = math.Max(max.X, p.X)
			max.Y = math.Max(max.Y, p.Y)
			max.Z = math.Max(max.Z, p.Z)
		}
	}
	return min, max, true
}
