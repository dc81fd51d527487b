package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/roofwatts/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	yamlConfig, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	// Load SQLite configuration
	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	// Compare configurations
	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	mismatches := 0
	mismatches += compareSection("Analysis", yamlConfig.Analysis, sqliteConfig.Analysis)
	mismatches += compareSection("Yield", yamlConfig.Yield, sqliteConfig.Yield)
	mismatches += compareStorage(yamlConfig.Storage, sqliteConfig.Storage)
	mismatches += compareSection("Server", yamlConfig.Server, sqliteConfig.Server)

	if mismatches > 0 {
		fmt.Printf("\n✗ %d section(s) differ\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("\n✓ Configurations match")
}

// compareSection compares two flat config sections field by field and
// returns 1 if they differ.
func compareSection(name string, yaml, sqlite interface{}) int {
	if reflect.DeepEqual(yaml, sqlite) {
		fmt.Printf("✓ %s configuration matches\n", name)
		return 0
	}

	fmt.Printf("✗ %s configuration differs\n", name)
	yv := reflect.ValueOf(yaml)
	sv := reflect.ValueOf(sqlite)
	for i := 0; i < yv.NumField(); i++ {
		yf := yv.Field(i).Interface()
		sf := sv.Field(i).Interface()
		if !reflect.DeepEqual(yf, sf) {
			fmt.Printf("  %s: YAML='%v', SQLite='%v'\n", yv.Type().Field(i).Name, yf, sf)
		}
	}
	return 1
}

// compareStorage handles the pointer-valued storage section separately so
// that "unset" and "set but different" report distinctly.
func compareStorage(yaml, sqlite config.StorageData) int {
	if (yaml.TimescaleDB == nil) != (sqlite.TimescaleDB == nil) {
		fmt.Println("✗ TimescaleDB configuration presence mismatch")
		return 1
	}
	if yaml.TimescaleDB == nil {
		fmt.Println("✓ TimescaleDB: both unset")
		return 0
	}
	if reflect.DeepEqual(*yaml.TimescaleDB, *sqlite.TimescaleDB) {
		fmt.Println("✓ TimescaleDB configuration matches")
		return 0
	}
	fmt.Println("✗ TimescaleDB configuration differs")
	fmt.Printf("  ConnectionString: YAML='%s', SQLite='%s'\n",
		yaml.TimescaleDB.ConnectionString, sqlite.TimescaleDB.ConnectionString)
	return 1
}
