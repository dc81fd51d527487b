package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// InitializeSchema creates the configuration tables and the default config
// row when they do not exist yet, so a fresh database is usable immediately.
func (s *SQLiteProvider) InitializeSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_configs (
			config_id INTEGER NOT NULL REFERENCES configs(id),
			panel_efficiency REAL,
			system_losses_pct REAL,
			angle_tolerance_deg REAL,
			min_segment_area_m2 REAL,
			consumption_kwh_per_m2 REAL,
			fallback_consumption_kwh REAL
		)`,
		`CREATE TABLE IF NOT EXISTS yield_configs (
			config_id INTEGER NOT NULL REFERENCES configs(id),
			backend TEXT,
			api_key TEXT,
			api_endpoint TEXT,
			timeout_sec INTEGER,
			min_interval_sec REAL,
			max_concurrent_lookups INTEGER,
			all_sky_fraction REAL,
			cache_file TEXT,
			cache_ttl_hours INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS storage_configs (
			config_id INTEGER NOT NULL REFERENCES configs(id),
			backend_type TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			timescale_connection_string TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS server_configs (
			config_id INTEGER NOT NULL REFERENCES configs(id),
			listen_addr TEXT,
			port INTEGER,
			cert TEXT,
			key TEXT,
			enable_cors INTEGER
		)`,
		`INSERT INTO configs (name) SELECT 'default'
			WHERE NOT EXISTS (SELECT 1 FROM configs WHERE name = 'default')`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize config schema: %w", err)
		}
	}
	return nil
}

// LoadConfig loads the complete configuration from the SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	analysis, err := s.GetAnalysisConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis config: %w", err)
	}
	config.Analysis = *analysis

	yield, err := s.GetYieldConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load yield config: %w", err)
	}
	config.Yield = *yield

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	server, err := s.GetServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	config.Server = *server

	return config, nil
}

// GetAnalysisConfig returns the analysis section from the database
func (s *SQLiteProvider) GetAnalysisConfig() (*AnalysisData, error) {
	query := `
		SELECT panel_efficiency, system_losses_pct, angle_tolerance_deg,
		       min_segment_area_m2, consumption_kwh_per_m2, fallback_consumption_kwh
		FROM analysis_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	data := &AnalysisData{}
	var efficiency, losses, tolerance, minArea, consumption, fallback sql.NullFloat64

	err := s.db.QueryRow(query).Scan(&efficiency, &losses, &tolerance, &minArea, &consumption, &fallback)
	if err == sql.ErrNoRows {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis config: %w", err)
	}

	if efficiency.Valid {
		data.PanelEfficiency = efficiency.Float64
	}
	if losses.Valid {
		data.SystemLossesPct = losses.Float64
	}
	if tolerance.Valid {
		data.AngleToleranceDeg = tolerance.Float64
	}
	if minArea.Valid {
		data.MinSegmentAreaM2 = minArea.Float64
	}
	if consumption.Valid {
		data.ConsumptionKWhPerM2 = consumption.Float64
	}
	if fallback.Valid {
		data.FallbackConsumptionKWh = fallback.Float64
	}

	return data, nil
}

// GetYieldConfig returns the yield estimator section from the database
func (s *SQLiteProvider) GetYieldConfig() (*YieldData, error) {
	query := `
		SELECT backend, api_key, api_endpoint, timeout_sec,
		       min_interval_sec, max_concurrent_lookups, all_sky_fraction, cache_file, cache_ttl_hours
		FROM yield_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	data := &YieldData{}
	var backend, apiKey, endpoint, cacheFile sql.NullString
	var timeoutSec, maxLookups, cacheTTL sql.NullInt64
	var minInterval, allSky sql.NullFloat64

	err := s.db.QueryRow(query).Scan(&backend, &apiKey, &endpoint, &timeoutSec,
		&minInterval, &maxLookups, &allSky, &cacheFile, &cacheTTL)
	if err == sql.ErrNoRows {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query yield config: %w", err)
	}

	if backend.Valid {
		data.Backend = backend.String
	}
	if apiKey.Valid {
		data.APIKey = apiKey.String
	}
	if endpoint.Valid {
		data.APIEndpoint = endpoint.String
	}
	if timeoutSec.Valid {
		data.TimeoutSec = int(timeoutSec.Int64)
	}
	if minInterval.Valid {
		data.MinIntervalSec = minInterval.Float64
	}
	if maxLookups.Valid {
		data.MaxConcurrentLookups = int(maxLookups.Int64)
	}
	if allSky.Valid {
		data.AllSkyFraction = allSky.Float64
	}
	if cacheFile.Valid {
		data.CacheFile = cacheFile.String
	}
	if cacheTTL.Valid {
		data.CacheTTLHours = int(cacheTTL.Int64)
	}

	return data, nil
}

// GetStorageConfig returns the storage section from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT backend_type, timescale_connection_string
		FROM storage_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default') AND enabled = 1
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var connectionString sql.NullString

		if err := rows.Scan(&backendType, &connectionString); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "timescaledb":
			if connectionString.Valid {
				storage.TimescaleDB = &TimescaleDBData{
					ConnectionString: connectionString.String,
				}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read storage config rows: %w", err)
	}

	return storage, nil
}

// GetServerConfig returns the REST server section from the database
func (s *SQLiteProvider) GetServerConfig() (*ServerData, error) {
	query := `
		SELECT listen_addr, port, cert, key, enable_cors
		FROM server_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	data := &ServerData{}
	var listenAddr, cert, key sql.NullString
	var port sql.NullInt64
	var enableCORS sql.NullBool

	err := s.db.QueryRow(query).Scan(&listenAddr, &port, &cert, &key, &enableCORS)
	if err == sql.ErrNoRows {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query server config: %w", err)
	}

	if listenAddr.Valid {
		data.ListenAddr = listenAddr.String
	}
	if port.Valid {
		data.Port = int(port.Int64)
	}
	if cert.Valid {
		data.Cert = cert.String
	}
	if key.Valid {
		data.Key = key.String
	}
	if enableCORS.Valid {
		data.EnableCORS = enableCORS.Bool
	}

	return data, nil
}

// SaveConfig replaces the default configuration with cfg inside one
// transaction.
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin config transaction: %w", err)
	}
	defer tx.Rollback()

	var configID int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = 'default'`).Scan(&configID); err != nil {
		return fmt.Errorf("failed to find default config: %w", err)
	}

	tables := []string{"analysis_configs", "yield_configs", "storage_configs", "server_configs"}
	for _, table := range tables {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE config_id = ?`, configID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO analysis_configs (config_id, panel_efficiency, system_losses_pct,
			angle_tolerance_deg, min_segment_area_m2, consumption_kwh_per_m2, fallback_consumption_kwh)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		configID, cfg.Analysis.PanelEfficiency, cfg.Analysis.SystemLossesPct,
		cfg.Analysis.AngleToleranceDeg, cfg.Analysis.MinSegmentAreaM2,
		cfg.Analysis.ConsumptionKWhPerM2, cfg.Analysis.FallbackConsumptionKWh)
	if err != nil {
		return fmt.Errorf("failed to save analysis config: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO yield_configs (config_id, backend, api_key, api_endpoint,
			timeout_sec, min_interval_sec, max_concurrent_lookups, all_sky_fraction, cache_file, cache_ttl_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		configID, cfg.Yield.Backend, cfg.Yield.APIKey, cfg.Yield.APIEndpoint,
		cfg.Yield.TimeoutSec, cfg.Yield.MinIntervalSec, cfg.Yield.MaxConcurrentLookups,
		cfg.Yield.AllSkyFraction, cfg.Yield.CacheFile, cfg.Yield.CacheTTLHours)
	if err != nil {
		return fmt.Errorf("failed to save yield config: %w", err)
	}

	if cfg.Storage.TimescaleDB != nil {
		_, err = tx.Exec(`
			INSERT INTO storage_configs (config_id, backend_type, enabled, timescale_connection_string)
			VALUES (?, 'timescaledb', 1, ?)`,
			configID, cfg.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return fmt.Errorf("failed to save storage config: %w", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO server_configs (config_id, listen_addr, port, cert, key, enable_cors)
		VALUES (?, ?, ?, ?, ?, ?)`,
		configID, cfg.Server.ListenAddr, cfg.Server.Port, cfg.Server.Cert,
		cfg.Server.Key, cfg.Server.EnableCORS)
	if err != nil {
		return fmt.Errorf("failed to save server config: %w", err)
	}

	return tx.Commit()
}

// IsReadOnly returns false since SQLite configurations can be updated
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
