package config

import "fmt"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetAnalysisConfig() (*AnalysisData, error)
	GetYieldConfig() (*YieldData, error)
	GetStorageConfig() (*StorageData, error)
	GetServerConfig() (*ServerData, error)

	// Configuration management (SQLite supports writes, YAML does not)
	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Analysis AnalysisData `json:"analysis,omitempty"`
	Yield    YieldData    `json:"yield,omitempty"`
	Storage  StorageData  `json:"storage,omitempty"`
	Server   ServerData   `json:"server,omitempty"`
}

// AnalysisData holds the pipeline tunables. Zero values mean "use the
// built-in default" and are merged by the caller.
type AnalysisData struct {
	PanelEfficiency        float64 `json:"panel_efficiency,omitempty"`
	SystemLossesPct        float64 `json:"system_losses_pct,omitempty"`
	AngleToleranceDeg      float64 `json:"angle_tolerance_deg,omitempty"`
	MinSegmentAreaM2       float64 `json:"min_segment_area_m2,omitempty"`
	ConsumptionKWhPerM2    float64 `json:"consumption_kwh_per_m2,omitempty"`
	FallbackConsumptionKWh float64 `json:"fallback_consumption_kwh,omitempty"`
}

// YieldData holds configuration for the yield estimator backends.
// AllSkyFraction overrides the clearsky backend's cloud-cover derate; 0
// keeps the built-in default. The yield-calibrate tool prints fitted
// values for it.
type YieldData struct {
	Backend              string  `json:"backend,omitempty"`
	APIKey               string  `json:"api_key,omitempty"`
	APIEndpoint          string  `json:"api_endpoint,omitempty"`
	TimeoutSec           int     `json:"timeout_sec,omitempty"`
	MinIntervalSec       float64 `json:"min_interval_sec,omitempty"`
	MaxConcurrentLookups int     `json:"max_concurrent_lookups,omitempty"`
	AllSkyFraction       float64 `json:"all_sky_fraction,omitempty"`
	CacheFile            string  `json:"cache_file,omitempty"`
	CacheTTLHours        int     `json:"cache_ttl_hours,omitempty"`
}

// StorageData holds the configuration for the results storage backend
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ServerData holds the REST server configuration
type ServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	EnableCORS bool   `json:"enable_cors,omitempty"`
}

// Validate rejects section values no backend could act on. Zero values are
// fine everywhere; they mean "use the default".
func (c *ConfigData) Validate() error {
	switch c.Yield.Backend {
	case "", "pvwatts", "clearsky":
	default:
		return fmt.Errorf("unknown yield backend %q, want pvwatts or clearsky", c.Yield.Backend)
	}
	if c.Yield.Backend == "pvwatts" && c.Yield.APIKey == "" {
		return fmt.Errorf("yield backend pvwatts requires an api key")
	}
	if c.Yield.TimeoutSec < 0 {
		return fmt.Errorf("yield timeout %d sec is negative", c.Yield.TimeoutSec)
	}
	if c.Yield.MinIntervalSec < 0 {
		return fmt.Errorf("yield minimum interval %v sec is negative", c.Yield.MinIntervalSec)
	}
	if c.Yield.MaxConcurrentLookups < 0 {
		return fmt.Errorf("yield concurrency %d is negative", c.Yield.MaxConcurrentLookups)
	}
	if c.Yield.AllSkyFraction < 0 || c.Yield.AllSkyFraction > 1 {
		return fmt.Errorf("yield all-sky fraction %v outside (0, 1]", c.Yield.AllSkyFraction)
	}
	if c.Yield.CacheTTLHours < 0 {
		return fmt.Errorf("yield cache TTL %d hours is negative", c.Yield.CacheTTLHours)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d outside [0, 65535]", c.Server.Port)
	}
	if (c.Server.Cert == "") != (c.Server.Key == "") {
		return fmt.Errorf("server cert and key must be provided together")
	}
	return nil
}
