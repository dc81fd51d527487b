// Package roof groups the upward-facing triangles of a building mesh into
// uniformly-oriented surface segments and derives their solar-relevant
// properties (area, tilt, compass azimuth).
//
// Clustering is greedy and processes triangles in mesh order: a triangle
// joins the first cluster whose running representative normal lies within
// the angle tolerance, otherwise it seeds a new cluster. Different input
// orderings of the same triangle set can therefore draw different cluster
// boundaries near the tolerance threshold. Real roofs are near-planar with
// small triangulation jitter, so the approximation holds up well in
// practice and avoids choosing a cluster count up front.
package roof

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chrissnell/roofwatts/pkg/geom"
)

// Cluster is a group of triangle indices whose normals agree within the
// clustering tolerance. Normal is the running area-weighted representative
// direction (unit length); AreaM2 is the accumulated member area.
type Cluster struct {
	Normal  r3.Vec
	AreaM2  float64
	Indices []int
}

// ClusterByOrientation partitions the upward-facing, non-degenerate faces
// into orientation clusters. toleranceDeg is the maximum angle between a
// member normal and the cluster's representative normal at assignment time.
// Downward-facing faces (soffits, inverted geometry) and degenerate faces
// are skipped. An entirely vertical or inverted mesh yields an empty slice,
// which is a valid outcome, not an error.
func ClusterByOrientation(faces []geom.FaceRecord, toleranceDeg float64) []Cluster {
	cosTol := math.Cos(degToRad(toleranceDeg))

	var clusters []Cluster
	for i, f := range faces {
		if !f.Upward() {
			continue
		}

		assigned := false
		for ci := range clusters {
			c := &clusters[ci]
			if r3.Dot(f.Normal, c.Normal) >= cosTol {
				c.Indices = append(c.Indices, i)
				c.Normal = blendNormal(c.Normal, c.AreaM2, f.Normal, f.Area)
				c.AreaM2 += f.Area
				assigned = true
				break
			}
		}
		if !assigned {
			clusters = append(clusters, Cluster{
				Normal:  f.Normal,
				AreaM2:  f.Area,
				Indices: []int{i},
			})
		}
	}
	return clusters
}

// blendNormal folds one face into a cluster's running representative
// normal, weighting both sides by their accumulated areas.
func blendNormal(current r3.Vec, currentArea float64, n r3.Vec, area float64) r3.Vec {
	weighted := r3.Add(r3.Scale(currentArea, current), r3.Scale(area, n))
	mag := r3.Norm(weighted)
	if mag <= geom.DegenerateEpsilon {
		// Opposed normals cancelling out cannot happen inside a sane
		// tolerance band; keep the current direction if they somehow do.
		return current
	}
	return r3.Scale(1/mag, weighted)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
