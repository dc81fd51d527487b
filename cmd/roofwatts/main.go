// roofwatts runs a one-shot rooftop solar analysis over a site document and
// prints a text report or JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/internal/app"
	"github.com/chrissnell/roofwatts/internal/constants"
	"github.com/chrissnell/roofwatts/internal/log"
	"github.com/chrissnell/roofwatts/internal/report"
	"github.com/chrissnell/roofwatts/internal/sitefile"
	"github.com/chrissnell/roofwatts/internal/storage"
	"github.com/chrissnell/roofwatts/pkg/config"
)

func main() {
	sitePath := flag.String("site", "", "Path to the site document JSON (required)")
	cfgFile := flag.String("config", "", "Optional path to a YAML configuration file")
	lat := flag.Float64("lat", math.NaN(), "Latitude override in decimal degrees (use with -lon)")
	lon := flag.Float64("lon", math.NaN(), "Longitude override in decimal degrees (use with -lat)")
	offline := flag.Bool("offline", false, "Use the offline clear-sky estimator instead of PVWatts")
	backend := flag.String("backend", "", "Yield backend: 'pvwatts' or 'clearsky'")
	apiKey := flag.String("api-key", os.Getenv("PVWATTS_API_KEY"), "PVWatts API key (defaults to $PVWATTS_API_KEY)")
	jsonOut := flag.Bool("json", false, "Print the result as JSON instead of a text report")
	store := flag.Bool("store", false, "Persist the result to the configured TimescaleDB")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("roofwatts %s\n", constants.Version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *sitePath == "" {
		fmt.Fprintln(os.Stderr, "the -site flag is required; run with -h for help")
		os.Exit(2)
	}
	if math.IsNaN(*lat) != math.IsNaN(*lon) {
		fmt.Fprintln(os.Stderr, "-lat and -lon must be provided together")
		os.Exit(2)
	}

	cfgData, err := loadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the config file.
	if *backend != "" {
		cfgData.Yield.Backend = *backend
	}
	if *apiKey != "" {
		cfgData.Yield.APIKey = *apiKey
	}
	if *offline {
		cfgData.Yield.Backend = "clearsky"
	}
	if err := cfgData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	estimator, err := app.BuildEstimator(&cfgData.Yield)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building yield estimator: %v\n", err)
		os.Exit(1)
	}

	analyzer, err := analysis.New(app.BuildAnalysisConfig(&cfgData.Analysis, &cfgData.Yield), estimator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building analyzer: %v\n", err)
		os.Exit(1)
	}

	res := runAnalysis(analyzer, cfgData, *sitePath, *lat, *lon, *store)

	if *jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "error encoding result: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := report.Render(os.Stdout, res); err != nil {
			fmt.Fprintf(os.Stderr, "error rendering report: %v\n", err)
			os.Exit(1)
		}
	}

	if !res.OK {
		os.Exit(1)
	}
}

func runAnalysis(analyzer *analysis.Analyzer, cfgData *config.ConfigData, sitePath string, lat, lon float64, store bool) *analysis.Result {
	doc, err := sitefile.Load(sitePath)
	if err != nil {
		return analysis.Failed(fmt.Sprintf("could not load site document: %v", err))
	}

	in := doc.Input()
	if !math.IsNaN(lat) {
		in.Location = &analysis.Location{Latitude: lat, Longitude: lon}
	}

	// Interrupts cancel the run; the pipeline returns the partial result
	// computed so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := analyzer.Run(ctx, in)

	if store {
		if err := persistResult(cfgData, res); err != nil {
			log.Errorf("could not store analysis run: %v", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("run not stored: %v", err))
		}
	}

	return res
}

func persistResult(cfgData *config.ConfigData, res *analysis.Result) error {
	if cfgData.Storage.TimescaleDB == nil || cfgData.Storage.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("-store requires a timescaledb connection string in the configuration")
	}

	client, err := storage.NewClient(cfgData.Storage.TimescaleDB.ConnectionString)
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.SaveResult(res); err != nil {
		return err
	}
	log.Infof("stored analysis run %s", res.RunID)
	return nil
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	if cfgFile == "" {
		return &config.ConfigData{}, nil
	}

	filename, _ := filepath.Abs(cfgFile)
	provider := config.NewYAMLProvider(filename)
	defer provider.Close()

	return provider.LoadConfig()
}
