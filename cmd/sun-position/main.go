package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/chrissnell/roofwatts/pkg/solar"
)

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// compassPoint names the 16-wind compass point for an azimuth in degrees
// clockwise from north.
func compassPoint(azimuthDeg float64) string {
	i := int(math.Mod(azimuthDeg+11.25, 360) / 22.5)
	return compassPoints[i]
}

func main() {
	var timeStr string
	flag.StringVar(&timeStr, "time", "", "UTC time to compute the position for (RFC3339 format, e.g., 2026-06-21T12:00:00Z)")
	lat := flag.Float64("lat", math.NaN(), "Site latitude in degrees (required)")
	lon := flag.Float64("lon", math.NaN(), "Site longitude in degrees (required)")
	altitude := flag.Float64("altitude", 0, "Site altitude in meters")
	tilt := flag.Float64("tilt", math.NaN(), "Roof tilt for plane-of-array output, degrees from horizontal")
	azimuth := flag.Float64("azimuth", 180, "Roof azimuth for plane-of-array output, degrees clockwise from north")
	flag.Parse()

	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		fmt.Fprintf(os.Stderr, "Error: -lat and -lon are required\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var t time.Time
	if timeStr == "" {
		t = time.Now().UTC()
	} else {
		var err error
		t, err = time.Parse(time.RFC3339, timeStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing time: %v\n", err)
			os.Exit(1)
		}
	}

	pos, irr := solar.ClearSky(t, *lat, *lon, *altitude)

	fmt.Printf("Sun Position for %s at %.4f, %.4f\n", t.Format(time.RFC3339), *lat, *lon)
	fmt.Printf("  Elevation:   %.1f°\n", pos.ElevationDeg)
	fmt.Printf("  Azimuth:     %.1f° (%s)\n", pos.AzimuthDeg, compassPoint(pos.AzimuthDeg))
	fmt.Printf("  Zenith:      %.1f°\n", pos.ZenithDeg)
	fmt.Printf("  Declination: %.1f°\n", pos.DeclinationDeg)
	fmt.Printf("  Eq. of time: %+.1f min\n", pos.EqOfTimeMin)

	fmt.Printf("Clear-Sky Irradiance\n")
	fmt.Printf("  GHI: %.0f W/m²\n", irr.GHI)
	fmt.Printf("  DNI: %.0f W/m²\n", irr.DNI)
	fmt.Printf("  DHI: %.0f W/m²\n", irr.DHI)

	if !math.IsNaN(*tilt) {
		poa := solar.PlaneOfArray(pos, irr, *tilt, *azimuth)
		fmt.Printf("  POA (%.0f° tilt, %.0f° azimuth): %.0f W/m²\n", *tilt, *azimuth, poa)
	}
}
