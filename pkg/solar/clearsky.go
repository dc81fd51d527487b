package solar

import (
	"math"
	"time"
)

// ClearSky computes the sun position and the simplified Ineichen-Perez
// clear-sky irradiance components for a UTC instant at the given site.
// altitudeM is the site elevation above sea level in meters. All
// components are zero while the sun is below the horizon.
func ClearSky(t time.Time, latitude, longitude, altitudeM float64) (Position, Irradiance) {
	pos := SunPosition(t, latitude, longitude)
	if pos.ZenithDeg >= 90 {
		return pos, Irradiance{}
	}

	N := t.UTC().YearDay()

	// Extraterrestrial radiation, adjusted for Earth-Sun distance.
	G0 := solarConstant * (1 + 0.033*math.Cos(degToRad(360.0*(float64(N)-3)/365.0)))

	// Kasten-Young air mass.
	AM := 1.0 / (math.Cos(degToRad(pos.ZenithDeg)) + 0.50572*math.Pow(96.07995-pos.ZenithDeg, -1.6364))

	const (
		TL = 2.0   // Linke turbidity factor, typical clear sky (range 2-6)
		c  = 0.7   // DNI normalization constant
		a  = 0.027 // atmospheric extinction coefficient
	)
	DNI := G0 * c * math.Exp(-a*AM*TL*math.Exp(-altitudeM/8000.0))

	// Diffuse fraction with a mild seasonal swing.
	fh := 0.1 + 0.05*math.Sin(math.Pi*float64(N-100)/365.0)
	DHI := fh * G0 * math.Sin(degToRad(pos.ZenithDeg))

	GHI := DNI*math.Cos(degToRad(pos.ZenithDeg)) + DHI
	return pos, Irradiance{GHI: GHI, DNI: DNI, DHI: DHI}
}
