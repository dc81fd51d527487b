package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// TiltedRect builds a rectangular surface of two triangles, widthM by
// depthM meters, tilted tiltDeg from horizontal and facing compass azimuth
// azimuthDeg in the local frame, translated to origin. Winding keeps the
// normal outward, so any tilt under 90 degrees faces skyward. Useful for
// synthetic roofs in simulators and tests.
func TiltedRect(tiltDeg, azimuthDeg, widthM, depthM float64, origin r3.Vec) []Triangle {
	corners := []r3.Vec{{}, {X: widthM}, {X: widthM, Y: depthM}, {Y: depthM}}
	t := -tiltDeg * math.Pi / 180
	a := -azimuthDeg * math.Pi / 180

	rotated := make([]r3.Vec, len(corners))
	for i, p := range corners {
		// Tilt about the X axis, then swing to the azimuth about Z.
		p = r3.Vec{
			X: p.X,
			Y: p.Y*math.Cos(t) - p.Z*math.Sin(t),
			Z: p.Y*math.Sin(t) + p.Z*math.Cos(t),
		}
		rotated[i] = r3.Add(origin, r3.Vec{
			X: p.X*math.Cos(a) - p.Y*math.Sin(a),
			Y: p.X*math.Sin(a) + p.Y*math.Cos(a),
			Z: p.Z,
		})
	}

	return []Triangle{
		{A: rotated[0], B: rotated[1], C: rotated[2]},
		{A: rotated[0], B: rotated[2], C: rotated[3]},
	}
}
