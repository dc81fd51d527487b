package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from a YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into a temporary struct with YAML tags
	var yamlConfig struct {
		Analysis AnalysisYAML `yaml:"analysis,omitempty"`
		Yield    YieldYAML    `yaml:"yield,omitempty"`
		Storage  StorageYAML  `yaml:"storage,omitempty"`
		Server   ServerYAML   `yaml:"server,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Analysis: AnalysisData{
			PanelEfficiency:        yamlConfig.Analysis.PanelEfficiency,
			SystemLossesPct:        yamlConfig.Analysis.SystemLossesPct,
			AngleToleranceDeg:      yamlConfig.Analysis.AngleToleranceDeg,
			MinSegmentAreaM2:       yamlConfig.Analysis.MinSegmentAreaM2,
			ConsumptionKWhPerM2:    yamlConfig.Analysis.ConsumptionKWhPerM2,
			FallbackConsumptionKWh: yamlConfig.Analysis.FallbackConsumptionKWh,
		},
		Yield: YieldData{
			Backend:              yamlConfig.Yield.Backend,
			APIKey:               yamlConfig.Yield.APIKey,
			APIEndpoint:          yamlConfig.Yield.APIEndpoint,
			TimeoutSec:           yamlConfig.Yield.TimeoutSec,
			MinIntervalSec:       yamlConfig.Yield.MinIntervalSec,
			MaxConcurrentLookups: yamlConfig.Yield.MaxConcurrentLookups,
			AllSkyFraction:       yamlConfig.Yield.AllSkyFraction,
			CacheFile:            yamlConfig.Yield.CacheFile,
			CacheTTLHours:        yamlConfig.Yield.CacheTTLHours,
		},
		Server: ServerData{
			ListenAddr: yamlConfig.Server.ListenAddr,
			Port:       yamlConfig.Server.Port,
			Cert:       yamlConfig.Server.Cert,
			Key:        yamlConfig.Server.Key,
			EnableCORS: yamlConfig.Server.EnableCORS,
		},
	}

	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	y.config = config
	return config, nil
}

// GetAnalysisConfig returns the analysis section
func (y *YAMLProvider) GetAnalysisConfig() (*AnalysisData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Analysis, nil
}

// GetYieldConfig returns the yield estimator section
func (y *YAMLProvider) GetYieldConfig() (*YieldData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Yield, nil
}

// GetStorageConfig returns the storage section
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// GetServerConfig returns the REST server section
func (y *YAMLProvider) GetServerConfig() (*ServerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Server, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the file format
type AnalysisYAML struct {
	PanelEfficiency        float64 `yaml:"panel-efficiency,omitempty"`
	SystemLossesPct        float64 `yaml:"system-losses-pct,omitempty"`
	AngleToleranceDeg      float64 `yaml:"angle-tolerance-deg,omitempty"`
	MinSegmentAreaM2       float64 `yaml:"min-segment-area-m2,omitempty"`
	ConsumptionKWhPerM2    float64 `yaml:"consumption-kwh-per-m2,omitempty"`
	FallbackConsumptionKWh float64 `yaml:"fallback-consumption-kwh,omitempty"`
}

type YieldYAML struct {
	Backend              string  `yaml:"backend,omitempty"`
	APIKey               string  `yaml:"api-key,omitempty"`
	APIEndpoint          string  `yaml:"api-endpoint,omitempty"`
	TimeoutSec           int     `yaml:"timeout-sec,omitempty"`
	MinIntervalSec       float64 `yaml:"min-interval-sec,omitempty"`
	MaxConcurrentLookups int     `yaml:"max-concurrent-lookups,omitempty"`
	AllSkyFraction       float64 `yaml:"all-sky-fraction,omitempty"`
	CacheFile            string  `yaml:"cache-file,omitempty"`
	CacheTTLHours        int     `yaml:"cache-ttl-hours,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type ServerYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	EnableCORS bool   `yaml:"enable-cors,omitempty"`
}
