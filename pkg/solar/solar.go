// Package solar computes clear-sky solar position and irradiance, and
// transposes irradiance onto tilted roof planes. Positions follow the NOAA
// solar equations; irradiance uses a simplified Ineichen-Perez clear-sky
// model. Outputs are instantaneous W/m² or annual kWh/m² integrals.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// solarConstant is the average solar energy flux at the top of the
	// atmosphere, W/m².
	solarConstant = 1361.0

	// groundAlbedo is the fraction of horizontal irradiance reflected by
	// the ground onto tilted surfaces. 0.2 is the usual grass/urban value.
	groundAlbedo = 0.2
)

// Position is the sun's location in the sky for one instant and site.
type Position struct {
	ZenithDeg      float64 // angle from vertical
	ElevationDeg   float64 // angle above horizon, refraction-corrected
	AzimuthDeg     float64 // compass bearing, 0 = north, clockwise
	DeclinationDeg float64
	EqOfTimeMin    float64
}

// Irradiance holds clear-sky irradiance components in W/m².
type Irradiance struct {
	GHI float64 // global horizontal
	DNI float64 // direct normal beam
	DHI float64 // diffuse horizontal
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// SunPosition computes the sun's zenith, elevation and azimuth for a UTC
// instant at the given site.
func SunPosition(t time.Time, latitude, longitude float64) Position {
	jd := julian.TimeToJD(t.UTC())
	T := (jd - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	sunLong := L0 + C
	omega := 125.04 - 1934.136*T
	lambda := sunLong - 0.00569 - 0.00478*math.Sin(degToRad(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	declRad := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	utc := t.UTC()
	utcMin := float64(utc.Hour()*60+utc.Minute()) + float64(utc.Second())/60.0
	timeOffset := 4*longitude + eqTimeMin
	tst := utcMin + timeOffset
	ha := tst/4 - 180
	haRad := degToRad(ha)

	latRad := degToRad(latitude)
	cosZen := math.Sin(latRad)*math.Sin(declRad) + math.Cos(latRad)*math.Cos(declRad)*math.Cos(haRad)
	if cosZen > 1 {
		cosZen = 1
	} else if cosZen < -1 {
		cosZen = -1
	}
	zenRad := math.Acos(cosZen)
	zenDeg := radToDeg(zenRad)
	elDeg := 90 - zenDeg + 0.5667 // standard atmospheric refraction at the horizon

	pos := Position{
		ZenithDeg:      zenDeg,
		ElevationDeg:   elDeg,
		DeclinationDeg: radToDeg(declRad),
		EqOfTimeMin:    eqTimeMin,
	}

	sinZen := math.Sin(zenRad)
	if sinZen > 1e-9 {
		azCos := (math.Sin(declRad) - math.Sin(latRad)*cosZen) / (math.Cos(latRad) * sinZen)
		if azCos > 1 {
			azCos = 1
		} else if azCos < -1 {
			azCos = -1
		}
		azDeg := radToDeg(math.Acos(azCos))
		if ha > 0 {
			azDeg = 360 - azDeg
		}
		pos.AzimuthDeg = azDeg
	}
	return pos
}
