package roof

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chrissnell/roofwatts/pkg/geom"
)

// trueNorthEpsilon is the band around 0 (and 360) inside which a stored
// true-north angle is treated as "no correction".
const trueNorthEpsilon = 0.01

// azimuthSnapEpsilon snaps mod-360 results that land within this distance
// of 360 back to exactly 0, so a surface facing a hair west of north never
// reports an azimuth of 360.0.
const azimuthSnapEpsilon = 1e-9

// Segment is one uniformly-oriented roof surface: the unit of solar
// analysis. Values are rounded for presentation: area to 2 decimal places,
// tilt and azimuth to 1.
type Segment struct {
	ID            string  `json:"segment_id"`
	AreaM2        float64 `json:"area_m2"`
	TiltDeg       float64 `json:"tilt_deg"`
	AzimuthDeg    float64 `json:"azimuth_deg"`
	TriangleCount int     `json:"triangle_count"`
}

// SegmentParams controls segment derivation from clusters.
type SegmentParams struct {
	// MinAreaM2 drops clusters below this area as triangulation noise.
	MinAreaM2 float64

	// TrueNorthDeg rotates computed azimuths from the model's local +Y
	// axis onto geographic north. Values within trueNorthEpsilon of 0 or
	// 360 apply no correction.
	TrueNorthDeg float64
}

// BuildSegments derives one Segment per surviving cluster. The
// representative normal is recomputed as the area-weighted vector sum of
// the member face normals (not the running value used during assignment),
// so dominant faces outweigh boundary slivers. Clusters below MinAreaM2
// are dropped; IDs are assigned to survivors in cluster order.
func BuildSegments(faces []geom.FaceRecord, clusters []Cluster, params SegmentParams) []Segment {
	var segments []Segment
	for _, c := range clusters {
		area, normal, ok := clusterProperties(faces, c.Indices)
		if !ok || area < params.MinAreaM2 {
			continue
		}

		azimuth := azimuthDeg(normal)
		if hasTrueNorth(params.TrueNorthDeg) {
			azimuth = normalizeAngle(azimuth + params.TrueNorthDeg)
		}

		segments = append(segments, Segment{
			ID:            fmt.Sprintf("Roof_Seg_%02d", len(segments)+1),
			AreaM2:        round2(area),
			TiltDeg:       round1(tiltDeg(normal)),
			AzimuthDeg:    normalizeAngle(round1(azimuth)),
			TriangleCount: len(c.Indices),
		})
	}
	return segments
}

// clusterProperties sums member areas and renormalizes the area-weighted
// normal for one cluster. ok is false for empty clusters or when the
// weighted sum collapses to zero.
func clusterProperties(faces []geom.FaceRecord, indices []int) (area float64, normal r3.Vec, ok bool) {
	var weighted r3.Vec
	for _, i := range indices {
		f := faces[i]
		area += f.Area
		weighted = r3.Add(weighted, r3.Scale(f.Area, f.Normal))
	}
	mag := r3.Norm(weighted)
	if area <= 0 || mag <= geom.DegenerateEpsilon {
		return 0, r3.Vec{}, false
	}
	return area, r3.Scale(1/mag, weighted), true
}

// tiltDeg returns the angle from horizontal: 0 is flat, 90 is vertical.
func tiltDeg(normal r3.Vec) float64 {
	nz := normal.Z
	if nz > 1 {
		nz = 1
	} else if nz < -1 {
		nz = -1
	}
	return radToDeg(math.Acos(nz))
}

// azimuthDeg returns the compass bearing of the surface in the model's
// local frame: 0 = local +Y (local north), clockwise, in [0, 360).
func azimuthDeg(normal r3.Vec) float64 {
	return normalizeAngle(radToDeg(math.Atan2(normal.X, normal.Y)))
}

// normalizeAngle maps deg into [0, 360), snapping near-360 results to 0.
// It runs again after rounding, because a raw 359.97 rounds up to 360.0.
func normalizeAngle(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m < 0 {
		m += 360
	}
	if 360-m < azimuthSnapEpsilon {
		return 0
	}
	return m
}

func hasTrueNorth(deg float64) bool {
	return math.Abs(deg) >= trueNorthEpsilon && math.Abs(deg-360) >= trueNorthEpsilon
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
