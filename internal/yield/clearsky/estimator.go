// Package clearsky estimates annual production from a local clear-sky
// irradiance model instead of a network service. It backs offline runs and
// serves as the baseline the yield-calibrate tool fits PVWatts results
// against.
package clearsky

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/roofwatts/internal/yield"
	"github.com/chrissnell/roofwatts/pkg/solar"
)

// DefaultAllSkyFraction derates the clear-sky integral for average cloud
// cover. The yield-calibrate tool refits this against PVWatts results.
const DefaultAllSkyFraction = 0.75

// Estimator integrates hourly clear-sky plane-of-array irradiance over a
// representative year.
type Estimator struct {
	// Year is the calendar year used for the hourly integration.
	Year int

	// AltitudeM is the site elevation above sea level.
	AltitudeM float64

	// AllSkyFraction scales the clear-sky result toward all-sky reality.
	AllSkyFraction float64
}

// New returns an Estimator over the most recent complete year with the
// default all-sky derate.
func New() *Estimator {
	return &Estimator{
		Year:           time.Now().Year() - 1,
		AllSkyFraction: DefaultAllSkyFraction,
	}
}

// Name implements yield.Estimator.
func (e *Estimator) Name() string {
	return "clearsky"
}

// EstimateAnnualKWh implements yield.Estimator. At standard test
// conditions a panel rated capacityKW produces capacityKW per 1 kW/m² of
// plane-of-array irradiance, so annual energy is capacity times the annual
// POA insolation, derated by system losses and the all-sky fraction.
func (e *Estimator) EstimateAnnualKWh(ctx context.Context, req yield.Request) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return 0, fmt.Errorf("latitude %.4f outside [-90, 90]", req.Latitude)
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return 0, fmt.Errorf("longitude %.4f outside [-180, 180]", req.Longitude)
	}

	poaKWhPerM2 := solar.AnnualPlaneOfArrayKWhPerM2(
		e.Year, req.Latitude, req.Longitude, e.AltitudeM, req.TiltDeg, req.AzimuthDeg)

	return req.SystemCapacityKW * poaKWhPerM2 * (1 - req.SystemLossesPct/100) * e.AllSkyFraction, nil
}
