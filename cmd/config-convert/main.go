package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/roofwatts/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Load and validate the YAML configuration before touching the database
	fmt.Printf("Loading YAML configuration...\n")
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	configData, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	// Remove existing SQLite file if force is specified
	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Creating SQLite database...\n")
	if err := loadConfigIntoSQLite(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration into SQLite: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func loadConfigIntoSQLite(dbPath string, configData *config.ConfigData) error {
	// Create directory if it doesn't exist
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite provider: %w", err)
	}
	defer provider.Close()

	if err := provider.InitializeSchema(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	fmt.Printf("Loading configuration into SQLite database...\n")
	if err := provider.SaveConfig(configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("  Configuration successfully inserted into database\n")
	return nil
}

func printConfigSummary(configData *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")

	fmt.Printf("Analysis:\n")
	printIfSet("Panel efficiency", configData.Analysis.PanelEfficiency)
	printIfSet("System losses (%)", configData.Analysis.SystemLossesPct)
	printIfSet("Angle tolerance (deg)", configData.Analysis.AngleToleranceDeg)
	printIfSet("Min segment area (m2)", configData.Analysis.MinSegmentAreaM2)
	printIfSet("Consumption (kWh/m2)", configData.Analysis.ConsumptionKWhPerM2)
	printIfSet("Fallback consumption (kWh)", configData.Analysis.FallbackConsumptionKWh)

	fmt.Printf("\nYield:\n")
	backend := configData.Yield.Backend
	if backend == "" {
		backend = "(none - geometry only)"
	}
	fmt.Printf("  - Backend: %s\n", backend)
	if configData.Yield.APIKey != "" {
		fmt.Printf("  - API key: configured\n")
	}
	if configData.Yield.APIEndpoint != "" {
		fmt.Printf("  - API endpoint: %s\n", configData.Yield.APIEndpoint)
	}
	printIfSet("Timeout (sec)", float64(configData.Yield.TimeoutSec))
	printIfSet("Min interval (sec)", configData.Yield.MinIntervalSec)
	printIfSet("Max concurrent lookups", float64(configData.Yield.MaxConcurrentLookups))
	printIfSet("All-sky fraction", configData.Yield.AllSkyFraction)
	if configData.Yield.CacheFile != "" {
		fmt.Printf("  - Cache: %s (TTL %dh)\n", configData.Yield.CacheFile, configData.Yield.CacheTTLHours)
	}

	fmt.Printf("\nStorage Backends:\n")
	if configData.Storage.TimescaleDB != nil {
		fmt.Printf("  - TimescaleDB: %s\n", configData.Storage.TimescaleDB.ConnectionString)
	} else {
		fmt.Printf("  - none\n")
	}

	fmt.Printf("\nServer:\n")
	addr := configData.Server.ListenAddr
	if addr == "" {
		addr = "(all interfaces)"
	}
	fmt.Printf("  - Listen: %s port %d\n", addr, configData.Server.Port)
	if configData.Server.Cert != "" {
		fmt.Printf("  - TLS: %s / %s\n", configData.Server.Cert, configData.Server.Key)
	}
	fmt.Printf("  - CORS: %v\n", configData.Server.EnableCORS)
}

func printIfSet(label string, v float64) {
	if v != 0 {
		fmt.Printf("  - %s: %v\n", label, v)
	}
}
