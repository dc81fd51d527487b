package roof

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chrissnell/roofwatts/pkg/geom"
)

func tiltedRect(tiltDeg, azDeg, w, d float64) []geom.Triangle {
	return geom.TiltedRect(tiltDeg, azDeg, w, d, r3.Vec{})
}

func TestClusterByOrientationFlatRoof(t *testing.T) {
	var mesh []geom.Triangle
	for i := 0; i < 4; i++ {
		mesh = append(mesh, geom.TiltedRect(0, 0, 1, 1, r3.Vec{X: float64(i) * 1.5})...)
	}

	clusters := ClusterByOrientation(geom.ExtractFaces(mesh), 15)
	if len(clusters) != 1 {
		t.Fatalf("ClusterByOrientation() = %d clusters, want 1", len(clusters))
	}
	if len(clusters[0].Indices) != 8 {
		t.Errorf("cluster has %d members, want 8", len(clusters[0].Indices))
	}
	if math.Abs(clusters[0].AreaM2-4) > 1e-9 {
		t.Errorf("cluster area = %v, want 4", clusters[0].AreaM2)
	}
	if math.Abs(clusters[0].Normal.Z-1) > 1e-9 {
		t.Errorf("cluster normal = %+v, want straight up", clusters[0].Normal)
	}
}

func TestClusterByOrientationTolerance(t *testing.T) {
	tests := []struct {
		name         string
		separation   float64
		toleranceDeg float64
		wantClusters int
	}{
		{"well inside tolerance", 5, 15, 1},
		{"just inside tolerance", 14, 15, 1},
		{"just outside tolerance", 16, 15, 2},
		{"far outside tolerance", 40, 15, 2},
		{"tight tolerance splits small jitter", 5, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh := append(
				tiltedRect(10, 0, 4, 4),
				tiltedRect(10+tt.separation, 0, 4, 4)...,
			)
			clusters := ClusterByOrientation(geom.ExtractFaces(mesh), tt.toleranceDeg)
			if len(clusters) != tt.wantClusters {
				t.Errorf("got %d clusters, want %d", len(clusters), tt.wantClusters)
			}
		})
	}
}

func TestClusterByOrientationSkipsNonUpward(t *testing.T) {
	mesh := []geom.Triangle{
		// Downward-facing (reversed winding).
		{A: r3.Vec{}, B: r3.Vec{Y: 1}, C: r3.Vec{X: 1}},
		// Degenerate.
		{A: r3.Vec{}, B: r3.Vec{X: 1}, C: r3.Vec{X: 2}},
	}
	// A vertical wall has Normal.Z == 0 and is skipped too.
	mesh = append(mesh, tiltedRect(90, 180, 3, 2)...)

	clusters := ClusterByOrientation(geom.ExtractFaces(mesh), 15)
	if len(clusters) != 0 {
		t.Fatalf("ClusterByOrientation() = %d clusters for non-roof geometry, want 0", len(clusters))
	}
}

func TestClusterByOrientationEmptyMesh(t *testing.T) {
	clusters := ClusterByOrientation(nil, 15)
	if len(clusters) != 0 {
		t.Fatalf("ClusterByOrientation(nil) = %d clusters, want 0", len(clusters))
	}
}

// Members of a cluster must sit within the tolerance of the cluster's final
// representative normal, allowing a little numerical slack for the running
// area-weighted updates.
func TestClusterMembersWithinTolerance(t *testing.T) {
	const toleranceDeg = 15.0

	var mesh []geom.Triangle
	for _, tilt := range []float64{0, 4, 8, 12} {
		mesh = append(mesh, tiltedRect(tilt, 0, 3, 3)...)
	}
	faces := geom.ExtractFaces(mesh)

	clusters := ClusterByOrientation(faces, toleranceDeg)
	for ci, c := range clusters {
		_, normal, ok := clusterProperties(faces, c.Indices)
		if !ok {
			t.Fatalf("cluster %d has no usable representative normal", ci)
		}
		for _, i := range c.Indices {
			dot := r3.Dot(faces[i].Normal, normal)
			if dot > 1 {
				dot = 1
			}
			angle := radToDeg(math.Acos(dot))
			if angle > toleranceDeg+1e-6 {
				t.Errorf("cluster %d member %d is %.3f degrees from the representative normal, tolerance %.0f",
					ci, i, angle, toleranceDeg)
			}
		}
	}
}

// Clustering the same mesh twice must produce identical clusters.
func TestClusterByOrientationDeterministic(t *testing.T) {
	mesh := append(tiltedRect(30, 130, 10, 8.26), tiltedRect(30, 310, 10, 8.26)...)
	mesh = append(mesh, tiltedRect(2, 0, 5, 5)...)
	faces := geom.ExtractFaces(mesh)

	first := ClusterByOrientation(faces, 15)
	second := ClusterByOrientation(faces, 15)

	if len(first) != len(second) {
		t.Fatalf("cluster counts differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i].Indices) != len(second[i].Indices) {
			t.Fatalf("cluster %d sizes differ between runs", i)
		}
		for j := range first[i].Indices {
			if first[i].Indices[j] != second[i].Indices[j] {
				t.Errorf("cluster %d member %d differs between runs", i, j)
			}
		}
		if first[i].Normal != second[i].Normal || first[i].AreaM2 != second[i].AreaM2 {
			t.Errorf("cluster %d summary differs between runs", i)
		}
	}
}
