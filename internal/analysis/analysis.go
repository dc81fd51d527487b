// Package analysis runs the rooftop solar pipeline: extract face normals,
// cluster them into oriented segments, price each segment's annual yield
// through an injected estimator, and aggregate totals, a consumption
// benchmark, and the site score.
//
// A run advances through the stages empty, clustered, segmented and
// aggregated, in that order. Geometry-only runs (no location or no
// estimator) stop at segmented with yield fields left null. Results are
// immutable once returned; re-running means building a fresh result.
package analysis

import (
	"fmt"
	"math"
	"time"
)

// Config carries the tunable constants for one Analyzer. Values are fixed
// at construction; nothing reads process-wide state.
type Config struct {
	// PanelEfficiency is kW of rated panel capacity per m² of roof.
	// The 0.20 default assumes one kW of panels per five square meters.
	PanelEfficiency float64

	// SystemLossesPct is the scalar system loss passed to estimators.
	SystemLossesPct float64

	// AngleToleranceDeg bounds how far a triangle normal may sit from a
	// cluster's representative normal and still join the cluster.
	AngleToleranceDeg float64

	// MinSegmentAreaM2 drops smaller clusters as triangulation noise.
	MinSegmentAreaM2 float64

	// MinInterCallDelay spaces successive estimator calls to respect the
	// external service's request budget.
	MinInterCallDelay time.Duration

	// MaxConcurrentLookups bounds the estimator-call pool. The inter-call
	// delay still applies across the whole pool.
	MaxConcurrentLookups int

	// ConsumptionKWhPerM2 converts floor area into the annual consumption
	// benchmark.
	ConsumptionKWhPerM2 float64

	// FallbackConsumptionKWh is the benchmark when floor area is unknown.
	FallbackConsumptionKWh float64
}

// DefaultConfig returns the standard constants.
func DefaultConfig() Config {
	return Config{
		PanelEfficiency:        0.20,
		SystemLossesPct:        14,
		AngleToleranceDeg:      15,
		MinSegmentAreaM2:       1.0,
		MinInterCallDelay:      time.Second,
		MaxConcurrentLookups:   1,
		ConsumptionKWhPerM2:    150,
		FallbackConsumptionKWh: 50000,
	}
}

// Validate rejects configurations that would make every downstream result
// meaningless. Called at Analyzer construction so nothing runs on a bad
// config.
func (c Config) Validate() error {
	if c.PanelEfficiency <= 0 || c.PanelEfficiency > 1 {
		return fmt.Errorf("panel efficiency %v outside (0, 1]", c.PanelEfficiency)
	}
	if c.SystemLossesPct < 0 || c.SystemLossesPct >= 100 {
		return fmt.Errorf("system losses %v%% outside [0, 100)", c.SystemLossesPct)
	}
	if c.AngleToleranceDeg <= 0 || c.AngleToleranceDeg > 90 {
		return fmt.Errorf("angle tolerance %v outside (0, 90]", c.AngleToleranceDeg)
	}
	if c.MinSegmentAreaM2 < 0 {
		return fmt.Errorf("minimum segment area %v is negative", c.MinSegmentAreaM2)
	}
	if c.MinInterCallDelay < 0 {
		return fmt.Errorf("inter-call delay %v is negative", c.MinInterCallDelay)
	}
	if c.MaxConcurrentLookups < 1 {
		return fmt.Errorf("max concurrent lookups %d, need at least 1", c.MaxConcurrentLookups)
	}
	if c.ConsumptionKWhPerM2 <= 0 {
		return fmt.Errorf("consumption benchmark %v kWh/m² not positive", c.ConsumptionKWhPerM2)
	}
	if c.FallbackConsumptionKWh <= 0 {
		return fmt.Errorf("fallback consumption %v kWh not positive", c.FallbackConsumptionKWh)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
