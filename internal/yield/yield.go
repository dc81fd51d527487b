// Package yield defines the estimator capability the analysis pipeline
// calls to price a roof segment's annual energy production, plus a small
// on-disk cache decorator. Concrete backends live in the pvwatts and
// clearsky subpackages; tests inject stubs.
package yield

import "context"

// Request carries one segment's parameters to an estimator. Azimuth uses
// compass convention (0 = north, 180 = south, clockwise).
type Request struct {
	Latitude         float64
	Longitude        float64
	SystemCapacityKW float64
	TiltDeg          float64
	AzimuthDeg       float64
	SystemLossesPct  float64
}

// Estimator produces an annual AC energy estimate in kWh for one roof
// segment. Implementations must be safe for concurrent use; any returned
// error is treated by the caller as a per-segment failure, never a fatal
// one.
type Estimator interface {
	EstimateAnnualKWh(ctx context.Context, req Request) (float64, error)
	Name() string
}
