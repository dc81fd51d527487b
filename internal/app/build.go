package app

import (
	"fmt"
	"time"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/internal/yield"
	"github.com/chrissnell/roofwatts/internal/yield/clearsky"
	"github.com/chrissnell/roofwatts/internal/yield/pvwatts"
	"github.com/chrissnell/roofwatts/pkg/config"
)

// BuildAnalysisConfig merges the configured analysis values over the
// built-in defaults. Zero values in either section mean "keep the default".
// The inter-call delay and lookup concurrency live in the yield section
// because they pace the estimator, not the geometry.
func BuildAnalysisConfig(ac *config.AnalysisData, yc *config.YieldData) analysis.Config {
	cfg := analysis.DefaultConfig()

	if ac != nil {
		if ac.PanelEfficiency != 0 {
			cfg.PanelEfficiency = ac.PanelEfficiency
		}
		if ac.SystemLossesPct != 0 {
			cfg.SystemLossesPct = ac.SystemLossesPct
		}
		if ac.AngleToleranceDeg != 0 {
			cfg.AngleToleranceDeg = ac.AngleToleranceDeg
		}
		if ac.MinSegmentAreaM2 != 0 {
			cfg.MinSegmentAreaM2 = ac.MinSegmentAreaM2
		}
		if ac.ConsumptionKWhPerM2 != 0 {
			cfg.ConsumptionKWhPerM2 = ac.ConsumptionKWhPerM2
		}
		if ac.FallbackConsumptionKWh != 0 {
			cfg.FallbackConsumptionKWh = ac.FallbackConsumptionKWh
		}
	}

	if yc != nil {
		if yc.MinIntervalSec != 0 {
			cfg.MinInterCallDelay = time.Duration(yc.MinIntervalSec * float64(time.Second))
		}
		if yc.MaxConcurrentLookups != 0 {
			cfg.MaxConcurrentLookups = yc.MaxConcurrentLookups
		}
	}

	return cfg
}

// BuildEstimator creates the configured yield backend, wrapped in the disk
// cache when a cache file is set. An empty backend selects pvwatts when an
// API key is present and no estimator (geometry-only) otherwise.
func BuildEstimator(yc *config.YieldData) (yield.Estimator, error) {
	if yc == nil {
		return nil, nil
	}

	backend := yc.Backend
	if backend == "" && yc.APIKey != "" {
		backend = "pvwatts"
	}

	var estimator yield.Estimator
	switch backend {
	case "":
		return nil, nil
	case "pvwatts":
		client, err := pvwatts.NewClient(yc.APIKey, yc.APIEndpoint, time.Duration(yc.TimeoutSec)*time.Second)
		if err != nil {
			return nil, err
		}
		estimator = client
	case "clearsky":
		cs := clearsky.New()
		if yc.AllSkyFraction > 0 {
			cs.AllSkyFraction = yc.AllSkyFraction
		}
		estimator = cs
	default:
		return nil, fmt.Errorf("unknown yield backend %q, want pvwatts or clearsky", backend)
	}

	if yc.CacheFile != "" {
		estimator = yield.NewCache(estimator, yc.CacheFile, time.Duration(yc.CacheTTLHours)*time.Hour)
	}

	return estimator, nil
}
