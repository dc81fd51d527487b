package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	SSLMode   string
	CSVFile   string
	BatchSize int
}

func main() {
	var cfg Config

	// Parse command line flags
	flag.StringVar(&cfg.Host, "host", "localhost", "Database host")
	flag.IntVar(&cfg.Port, "port", 5432, "Database port")
	flag.StringVar(&cfg.Database, "database", "roofwatts", "Database name")
	flag.StringVar(&cfg.User, "user", "postgres", "Database user")
	flag.StringVar(&cfg.Password, "password", "", "Database password")
	flag.StringVar(&cfg.SSLMode, "sslmode", "disable", "SSL mode (disable, require, etc)")
	flag.StringVar(&cfg.CSVFile, "file", "", "CSV file produced by runs-backup (required)")
	flag.IntVar(&cfg.BatchSize, "batch", 1000, "Number of rows to insert per batch")
	flag.Parse()

	if cfg.CSVFile == "" {
		log.Fatal("CSV file is required. Use -file flag")
	}

	// Build connection string
	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Printf("Connected to database %s@%s:%d", cfg.Database, cfg.Host, cfg.Port)

	// Open CSV file
	file, err := os.Open(cfg.CSVFile)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	// Get file size for progress tracking
	fileInfo, err := file.Stat()
	if err != nil {
		log.Fatalf("Failed to stat file: %v", err)
	}
	fileSize := fileInfo.Size()

	// Create a reader that tracks progress
	progressReader := &progressReader{
		reader: file,
		total:  fileSize,
	}

	// Parse CSV
	csvReader := csv.NewReader(progressReader)

	// Read header
	headers, err := csvReader.Read()
	if err != nil {
		log.Fatalf("Failed to read CSV headers: %v", err)
	}

	log.Printf("Found %d columns in CSV: %v", len(headers), headers)

	// Verify the runs table exists and get its schema
	tableColumns, columnTypes, err := getTableColumns(ctx, pool, "analysis_runs")
	if err != nil {
		log.Fatalf("Failed to get table schema: %v", err)
	}

	log.Printf("analysis_runs table has %d columns", len(tableColumns))

	// Check which CSV columns exist in the database
	var matchedColumns []string
	var missingColumns []string
	columnMap := make(map[string]bool)

	for _, col := range tableColumns {
		columnMap[col] = true
	}

	for _, header := range headers {
		if columnMap[header] {
			matchedColumns = append(matchedColumns, header)
		} else {
			missingColumns = append(missingColumns, header)
		}
	}

	if len(missingColumns) > 0 {
		log.Printf("WARNING: The following columns from CSV are not in the database and will be skipped: %v", missingColumns)
	}

	log.Printf("Will import %d columns: %v", len(matchedColumns), matchedColumns)

	// Find indices of matched columns in the CSV
	columnIndices := make(map[string]int)
	for i, header := range headers {
		if columnMap[header] {
			columnIndices[header] = i
		}
	}

	// Restore data
	if err := restoreData(ctx, pool, csvReader, matchedColumns, columnIndices, columnTypes, cfg.BatchSize, progressReader); err != nil {
		log.Fatalf("Failed to restore data: %v", err)
	}

	log.Println("Restore completed successfully!")
}

func getTableColumns(ctx context.Context, pool *pgxpool.Pool, tableName string) ([]string, map[string]string, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query table schema: %w", err)
	}
	defer rows.Close()

	var columns []string
	columnTypes := make(map[string]string)

	for rows.Next() {
		var column, dataType string
		if err := rows.Scan(&column, &dataType); err != nil {
			return nil, nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, column)
		columnTypes[column] = dataType
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row error: %w", err)
	}

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %s not found or has no columns", tableName)
	}

	return columns, columnTypes, nil
}

// parseTimestamp parses the formats runs-backup writes, plus a few common
// variants for hand-edited files.
func parseTimestamp(value string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999 -0700 MST",
		"2006-01-02 15:04:05.999999 -0700",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", value)
}

// convertCell coerces one CSV cell to the Go type pgx expects for the
// column's database type. Empty cells become NULL.
func convertCell(value, colType string) (interface{}, error) {
	if value == "" {
		return nil, nil
	}

	switch colType {
	case "timestamp with time zone", "timestamp without time zone":
		parsedTime, err := parseTimestamp(value)
		if err != nil {
			return nil, err
		}
		return parsedTime, nil
	case "integer", "bigint", "smallint":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, nil // Convert parse errors to NULL
		}
		return intVal, nil
	case "numeric", "real", "double precision":
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, nil // Convert parse errors to NULL
		}
		return floatVal, nil
	case "boolean":
		return value == "true" || value == "t" || value == "1", nil
	case "json", "jsonb":
		// pgx encodes a Go string straight into jsonb
		return value, nil
	default:
		// For text, varchar, and other types, use string as-is
		return value, nil
	}
}

func restoreData(ctx context.Context, pool *pgxpool.Pool, reader *csv.Reader, columns []string, columnIndices map[string]int, columnTypes map[string]string, batchSize int, progress *progressReader) error {
	// Start transaction
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows := make([][]interface{}, 0, batchSize)
	rowCount := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		// Extract only the columns we need
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			csvIndex := columnIndices[col]
			if csvIndex >= len(record) {
				row[i] = nil
				continue
			}
			cell, err := convertCell(record[csvIndex], columnTypes[col])
			if err != nil {
				return fmt.Errorf("failed to convert column %s: %w", col, err)
			}
			row[i] = cell
		}

		rows = append(rows, row)
		rowCount++

		// Process batch when full
		if len(rows) >= batchSize {
			_, err := tx.CopyFrom(
				ctx,
				pgx.Identifier{"analysis_runs"},
				columns,
				pgx.CopyFromRows(rows),
			)
			if err != nil {
				return fmt.Errorf("failed to copy batch: %w", err)
			}

			percentage := float64(progress.progress) / float64(progress.total) * 100
			log.Printf("Processed %d rows (%.1f%%)", rowCount, percentage)

			// Clear the rows slice for next batch
			rows = rows[:0]
		}
	}

	// Process any remaining rows
	if len(rows) > 0 {
		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"analysis_runs"},
			columns,
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy final batch: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Successfully imported %d rows", rowCount)
	return nil
}

// progressReader wraps a reader to track read progress
type progressReader struct {
	reader   io.Reader
	total    int64
	progress int64
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	pr.progress += int64(n)
	return n, err
}
