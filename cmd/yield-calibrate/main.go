package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	_ "github.com/lib/pq"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/internal/yield"
	"github.com/chrissnell/roofwatts/internal/yield/clearsky"
)

// RunSample pairs one stored PVWatts run with its recomputed clear-sky
// baseline at all-sky fraction 1.0
type RunSample struct {
	RunID          string
	Latitude       float64
	Longitude      float64
	PVWattsKWh     float64
	ClearSkyRawKWh float64
}

// CalibrationResult contains the fit quality for one all-sky fraction
type CalibrationResult struct {
	Fraction    float64
	RSquared    float64
	RMSE        float64
	MAE         float64
	SampleCount int
}

func main() {
	// Command line flags
	var (
		dbHost     = flag.String("db-host", "localhost", "Database host")
		dbPort     = flag.Int("db-port", 5432, "Database port")
		dbUser     = flag.String("db-user", "postgres", "Database user")
		dbPass     = flag.String("db-pass", "", "Database password")
		dbName     = flag.String("db-name", "roofwatts", "Database name")
		project    = flag.String("project", "", "Limit calibration to one project")
		days       = flag.Int("days", 90, "Number of days of runs to analyze")
		losses     = flag.Float64("losses", 14, "System losses percentage for the clear-sky recompute")
		minSamples = flag.Int("min-samples", 10, "Minimum number of runs required for a fit")
		csvOutput  = flag.String("csv", "", "Optional CSV output file path")
	)
	flag.Parse()

	if *minSamples < 2 {
		*minSamples = 2
	}

	// Connect to database
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		*dbHost, *dbPort, *dbUser, *dbPass, *dbName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clear-Sky All-Sky Fraction Calibration\n")
	fmt.Printf("======================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Database: %s/%s\n", *dbHost, *dbName)
	if *project != "" {
		fmt.Printf("  Project: %s\n", *project)
	}
	fmt.Printf("  Analysis Period: %d days\n", *days)
	fmt.Printf("  System Losses: %.1f%%\n\n", *losses)

	// Fetch stored PVWatts runs and recompute their clear-sky baselines
	samples := fetchRunSamples(db, *project, *days, *losses)

	if len(samples) < *minSamples {
		fmt.Fprintf(os.Stderr, "Error: Not enough PVWatts runs (%d). Need at least %d.\n", len(samples), *minSamples)
		os.Exit(1)
	}

	fmt.Printf("Collected %d PVWatts runs\n\n", len(samples))

	// Fit the fraction and score it against the shipped default
	fitted := fitFraction(samples)
	current := evaluateFraction(samples, clearsky.DefaultAllSkyFraction)

	displayComparison(current, fitted)
	displayConfigSnippet(fitted)

	// Optionally export to CSV
	if *csvOutput != "" {
		if err := exportCSV(*csvOutput, samples, fitted); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		} else {
			fmt.Printf("\nData exported to: %s\n", *csvOutput)
		}
	}
}

func fetchRunSamples(db *sql.DB, project string, days int, lossesPct float64) []RunSample {
	query := `
		SELECT run_id, latitude, longitude, total_production_kwh, segments
		FROM analysis_runs
		WHERE estimator = 'pvwatts'
		  AND ok
		  AND deleted_at IS NULL
		  AND latitude IS NOT NULL
		  AND total_production_kwh IS NOT NULL
		  AND generated_at >= NOW() - INTERVAL '1 day' * $1
		  AND ($2 = '' OR project = $2)
		ORDER BY generated_at
	`

	rows, err := db.Query(query, days, project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying runs: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	// The baseline runs at fraction 1.0 so the fitted slope IS the
	// all-sky fraction.
	baseline := clearsky.New()
	baseline.AllSkyFraction = 1

	var samples []RunSample
	for rows.Next() {
		var s RunSample
		var segmentsJSON []byte
		if err := rows.Scan(&s.RunID, &s.Latitude, &s.Longitude, &s.PVWattsKWh, &segmentsJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning row: %v\n", err)
			continue
		}

		var segments []analysis.Segment
		if err := json.Unmarshal(segmentsJSON, &segments); err != nil {
			fmt.Fprintf(os.Stderr, "Error decoding segments for run %s: %v\n", s.RunID, err)
			continue
		}

		total, err := clearSkyTotal(baseline, s, segments, lossesPct)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error recomputing run %s: %v\n", s.RunID, err)
			continue
		}
		if total <= 0 {
			continue
		}
		s.ClearSkyRawKWh = total
		samples = append(samples, s)
	}

	return samples
}

func clearSkyTotal(baseline *clearsky.Estimator, s RunSample, segments []analysis.Segment, lossesPct float64) (float64, error) {
	var total float64
	for _, seg := range segments {
		if seg.CapacityKW <= 0 {
			continue
		}
		kwh, err := baseline.EstimateAnnualKWh(context.Background(), yield.Request{
			Latitude:         s.Latitude,
			Longitude:        s.Longitude,
			SystemCapacityKW: seg.CapacityKW,
			TiltDeg:          seg.TiltDeg,
			AzimuthDeg:       seg.AzimuthDeg,
			SystemLossesPct:  lossesPct,
		})
		if err != nil {
			return 0, err
		}
		total += kwh
	}
	return total, nil
}

// fitFraction regresses stored PVWatts totals against the clear-sky
// baseline through the origin; the slope is the fitted all-sky fraction.
func fitFraction(samples []RunSample) CalibrationResult {
	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.ClearSkyRawKWh
		y[i] = s.PVWattsKWh
	}

	_, slope := stat.LinearRegression(x, y, nil, true)

	return evaluateFraction(samples, slope)
}

// evaluateFraction scores one candidate fraction against the samples.
func evaluateFraction(samples []RunSample, fraction float64) CalibrationResult {
	n := len(samples)

	var meanY float64
	for _, s := range samples {
		meanY += s.PVWattsKWh
	}
	meanY /= float64(n)

	var ssTot, ssRes, sumAbs float64
	for _, s := range samples {
		predicted := fraction * s.ClearSkyRawKWh
		ssTot += math.Pow(s.PVWattsKWh-meanY, 2)
		ssRes += math.Pow(s.PVWattsKWh-predicted, 2)
		sumAbs += math.Abs(s.PVWattsKWh - predicted)
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	return CalibrationResult{
		Fraction:    fraction,
		RSquared:    r2,
		RMSE:        math.Sqrt(ssRes / float64(n)),
		MAE:         sumAbs / float64(n),
		SampleCount: n,
	}
}

func displayComparison(current, fitted CalibrationResult) {
	fmt.Printf("Fraction Comparison\n")
	fmt.Printf("===================\n\n")

	fmt.Printf("%-16s | %8s | %8s | %10s | %10s\n", "Fraction", "Value", "R²", "RMSE(kWh)", "MAE(kWh)")
	fmt.Printf("-----------------+----------+----------+------------+------------\n")

	rows := []struct {
		name   string
		result CalibrationResult
	}{
		{"Current default", current},
		{"Fitted", fitted},
	}
	for _, row := range rows {
		marker := ""
		if row.result.RMSE <= current.RMSE && row.result.RMSE <= fitted.RMSE {
			marker = " ← BEST (RMSE)"
		}
		fmt.Printf("%-16s | %8.4f | %8.4f | %10.1f | %10.1f%s\n",
			row.name, row.result.Fraction, row.result.RSquared, row.result.RMSE, row.result.MAE, marker)
	}

	fmt.Printf("\nRecommendation:\n")
	fmt.Printf("  Fitted all-sky fraction: %.4f (over %d runs)\n", fitted.Fraction, fitted.SampleCount)

	if fitted.Fraction <= 0 || fitted.Fraction > 1 {
		fmt.Printf("\n  ⚠ WARNING: Fitted fraction %.4f is outside (0, 1] - check the losses flag and segment data\n", fitted.Fraction)
	}

	if fitted.RSquared < 0.3 {
		fmt.Printf("\n  ⚠ WARNING: Low R² (%.4f) - the clear-sky model tracks PVWatts poorly at these sites\n", fitted.RSquared)
		fmt.Printf("  A single fraction may not capture regional climate differences\n")
	} else if fitted.RSquared < 0.7 {
		fmt.Printf("\n  ℹ Moderate fit (R²=%.4f) - usable offline, expect site-level error\n", fitted.RSquared)
	} else {
		fmt.Printf("\n  ✓ Strong fit (R²=%.4f) - offline estimates will track PVWatts closely\n", fitted.RSquared)
	}
	fmt.Println()
}

func displayConfigSnippet(fitted CalibrationResult) {
	fmt.Printf("Config Snippet\n")
	fmt.Printf("==============\n\n")

	fmt.Printf("# Calibrated on %d runs, R² = %.4f, RMSE = %.1f kWh\n", fitted.SampleCount, fitted.RSquared, fitted.RMSE)
	fmt.Printf("yield:\n")
	fmt.Printf("  backend: clearsky\n")
	fmt.Printf("  all-sky-fraction: %.4f\n", fitted.Fraction)
}

func exportCSV(filename string, samples []RunSample, fitted CalibrationResult) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{"RunID", "Latitude", "Longitude", "ClearSkyRaw_kWh", "PVWatts_kWh", "Fitted_kWh", "Residual_kWh"}
	if err := writer.Write(header); err != nil {
		return err
	}

	// Write data
	for _, s := range samples {
		fittedKWh := fitted.Fraction * s.ClearSkyRawKWh
		record := []string{
			s.RunID,
			fmt.Sprintf("%.4f", s.Latitude),
			fmt.Sprintf("%.4f", s.Longitude),
			fmt.Sprintf("%.1f", s.ClearSkyRawKWh),
			fmt.Sprintf("%.1f", s.PVWattsKWh),
			fmt.Sprintf("%.1f", fittedKWh),
			fmt.Sprintf("%.1f", s.PVWattsKWh-fittedKWh),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
