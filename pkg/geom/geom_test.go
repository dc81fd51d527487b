package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestFaceNormalAndArea(t *testing.T) {
	tests := []struct {
		name       string
		tri        Triangle
		wantNormal r3.Vec
		wantArea   float64
	}{
		{
			name:       "unit right triangle in XY plane, CCW winding",
			tri:        Triangle{A: r3.Vec{}, B: r3.Vec{X: 1}, C: r3.Vec{Y: 1}},
			wantNormal: r3.Vec{Z: 1},
			wantArea:   0.5,
		},
		{
			name:       "reversed winding flips the normal",
			tri:        Triangle{A: r3.Vec{}, B: r3.Vec{Y: 1}, C: r3.Vec{X: 1}},
			wantNormal: r3.Vec{Z: -1},
			wantArea:   0.5,
		},
		{
			name: "translation does not change orientation or area",
			tri: Triangle{
				A: r3.Vec{X: 10, Y: -4, Z: 7},
				B: r3.Vec{X: 12, Y: -4, Z: 7},
				C: r3.Vec{X: 10, Y: -2, Z: 7},
			},
			wantNormal: r3.Vec{Z: 1},
			wantArea:   2,
		},
		{
			name: "45 degree slope facing local north",
			tri: Triangle{
				A: r3.Vec{},
				B: r3.Vec{X: 1},
				C: r3.Vec{X: 0, Y: -1, Z: 1},
			},
			wantNormal: r3.Vec{Y: 1 / math.Sqrt2, Z: 1 / math.Sqrt2},
			wantArea:   math.Sqrt2 / 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Face(tt.tri)
			if f.Degenerate {
				t.Fatalf("Face() flagged a valid triangle as degenerate")
			}
			if math.Abs(r3.Norm(f.Normal)-1) > 1e-9 {
				t.Errorf("normal magnitude = %v, want 1", r3.Norm(f.Normal))
			}
			if math.Abs(f.Normal.X-tt.wantNormal.X) > 1e-9 ||
				math.Abs(f.Normal.Y-tt.wantNormal.Y) > 1e-9 ||
				math.Abs(f.Normal.Z-tt.wantNormal.Z) > 1e-9 {
				t.Errorf("normal = %+v, want %+v", f.Normal, tt.wantNormal)
			}
			if math.Abs(f.Area-tt.wantArea) > 1e-9 {
				t.Errorf("area = %v, want %v", f.Area, tt.wantArea)
			}
		})
	}
}

func TestFaceDegenerate(t *testing.T) {
	tests := []struct {
		name string
		tri  Triangle
	}{
		{
			name: "collinear vertices",
			tri:  Triangle{A: r3.Vec{}, B: r3.Vec{X: 1}, C: r3.Vec{X: 2}},
		},
		{
			name: "coincident vertices",
			tri:  Triangle{A: r3.Vec{X: 3, Y: 3}, B: r3.Vec{X: 3, Y: 3}, C: r3.Vec{X: 5, Y: 1}},
		},
		{
			name: "all vertices identical",
			tri:  Triangle{A: r3.Vec{X: 1, Y: 2, Z: 3}, B: r3.Vec{X: 1, Y: 2, Z: 3}, C: r3.Vec{X: 1, Y: 2, Z: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Face(tt.tri)
			if !f.Degenerate {
				t.Fatalf("Face() did not flag a degenerate triangle")
			}
			if f.Area != 0 {
				t.Errorf("degenerate area = %v, want 0", f.Area)
			}
			if f.Normal != (r3.Vec{}) {
				t.Errorf("degenerate normal = %+v, want zero vector", f.Normal)
			}
			if math.IsNaN(f.Normal.X) || math.IsNaN(f.Normal.Y) || math.IsNaN(f.Normal.Z) {
				t.Errorf("degenerate normal contains NaN")
			}
		})
	}
}

func TestExtractFaces(t *testing.T) {
	mesh := []Triangle{
		{A: r3.Vec{}, B: r3.Vec{X: 2}, C: r3.Vec{Y: 2}},              // upward, area 2
		{A: r3.Vec{}, B: r3.Vec{X: 1}, C: r3.Vec{X: 2}},              // degenerate
		{A: r3.Vec{}, B: r3.Vec{Y: 1}, C: r3.Vec{X: 1}},              // downward
		{A: r3.Vec{Z: 4}, B: r3.Vec{X: 1, Z: 4}, C: r3.Vec{Y: 1, Z: 4}}, // upward, area 0.5
	}

	faces := ExtractFaces(mesh)
	if len(faces) != len(mesh) {
		t.Fatalf("ExtractFaces() returned %d records for %d triangles", len(faces), len(mesh))
	}

	wantUpward := []bool{true, false, false, true}
	for i, f := range faces {
		if f.Upward() != wantUpward[i] {
			t.Errorf("face %d Upward() = %v, want %v", i, f.Upward(), wantUpward[i])
		}
		if !f.Degenerate && math.Abs(r3.Norm(f.Normal)-1) > 1e-6 {
			t.Errorf("face %d normal magnitude = %v, want 1", i, r3.Norm(f.Normal))
		}
	}

	if got, want := TotalArea(faces), 3.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("TotalArea() = %v, want %v", got, want)
	}
}

func TestCentroid(t *testing.T) {
	tri := Triangle{A: r3.Vec{}, B: r3.Vec{X: 3}, C: r3.Vec{Y: 3}}
	c := tri.Centroid()
	if math.Abs(c.X-1) > 1e-9 || math.Abs(c.Y-1) > 1e-9 || math.Abs(c.Z) > 1e-9 {
		t.Errorf("Centroid() = %+v, want {1 1 0}", c)
	}
}

func TestBounds(t *testing.T) {
	mesh := []Triangle{
		{A: r3.Vec{X: -1, Y: 2}, B: r3.Vec{X: 4}, C: r3.Vec{Y: 5, Z: 3}},
		{A: r3.Vec{Z: -2}, B: r3.Vec{X: 1}, C: r3.Vec{Y: 1}},
	}
	min, max, ok := Bounds(mesh)
	if !ok {
		t.Fatal("Bounds() reported an empty mesh")
	}
	wantMin := r3.Vec{X: -1, Y: 0, Z: -2}
	wantMax := r3.Vec{X: 4, Y: 5, Z: 3}
	if min != wantMin || max != wantMax {
		t.Errorf("Bounds() = %+v, %+v, want %+v, %+v", min, max, wantMin, wantMax)
	}

	if _, _, ok := Bounds(nil); ok {
		t.Error("Bounds(nil) reported ok")
	}
}
