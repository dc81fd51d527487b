package solar

import (
	"math"
	"time"
)

// PlaneOfArray transposes clear-sky irradiance onto a tilted surface and
// returns the plane-of-array irradiance in W/m². tiltDeg is the surface
// angle from horizontal; azimuthDeg is the compass bearing the surface
// faces. Uses an isotropic sky for the diffuse term and a fixed ground
// albedo for the reflected term.
func PlaneOfArray(pos Position, irr Irradiance, tiltDeg, azimuthDeg float64) float64 {
	if pos.ZenithDeg >= 90 || irr.GHI <= 0 {
		return 0
	}

	tiltRad := degToRad(tiltDeg)
	zenRad := degToRad(pos.ZenithDeg)

	// Cosine of the beam's angle of incidence on the surface.
	cosAOI := math.Cos(tiltRad)*math.Cos(zenRad) +
		math.Sin(tiltRad)*math.Sin(zenRad)*math.Cos(degToRad(pos.AzimuthDeg-azimuthDeg))

	var beam float64
	if cosAOI > 0 {
		beam = irr.DNI * cosAOI
	}
	skyDiffuse := irr.DHI * (1 + math.Cos(tiltRad)) / 2
	groundReflected := irr.GHI * groundAlbedo * (1 - math.Cos(tiltRad)) / 2

	return beam + skyDiffuse + groundReflected
}

// AnnualPlaneOfArrayKWhPerM2 integrates hourly clear-sky plane-of-array
// irradiance over one calendar year, in kWh/m². Sampling is hourly in UTC,
// which is even-handed across longitudes because the hour angle carries
// the longitude correction.
func AnnualPlaneOfArrayKWhPerM2(year int, latitude, longitude, altitudeM, tiltDeg, azimuthDeg float64) float64 {
	start := time.Date(year, time.January, 1, 0, 30, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var sumWh float64
	for t := start; t.Before(end); t = t.Add(time.Hour) {
		pos, irr := ClearSky(t, latitude, longitude, altitudeM)
		sumWh += PlaneOfArray(pos, irr, tiltDeg, azimuthDeg)
	}
	return sumWh / 1000
}
