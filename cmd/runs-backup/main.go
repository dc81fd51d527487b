package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BackupFormat string

const (
	FormatCSV  BackupFormat = "csv"
	FormatJSON BackupFormat = "json"
	FormatSQL  BackupFormat = "sql"
)

type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	Format         BackupFormat
	Output         string
	Project        string
	Query          string
	IncludeDeleted bool
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
	formatStr := flag.String("format", "csv", "Backup format: csv, json, or sql")
	flag.StringVar(&cfg.Output, "output", "runs_backup", "Output file base name (extension added automatically)")
	flag.StringVar(&cfg.Project, "project", "", "Only back up runs for this project")
	flag.StringVar(&cfg.Query, "query", "", "Optional WHERE clause for filtering runs (e.g., \"generated_at > '2026-01-01'\")")
	flag.BoolVar(&cfg.IncludeDeleted, "include-deleted", false, "Include soft-deleted runs in the backup")
	flag.Parse()

	// Validate format
	switch BackupFormat(*formatStr) {
	case FormatCSV, FormatJSON, FormatSQL:
		cfg.Format = BackupFormat(*formatStr)
	default:
		log.Fatalf("Invalid format: %s. Must be csv, json, or sql", *formatStr)
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

	query, countQuery := buildQueries(cfg)

	// Get total count for progress tracking
	var totalCount int64
	err = pool.QueryRow(ctx, countQuery).Scan(&totalCount)
	if err != nil {
		log.Fatalf("Failed to get run count: %v", err)
	}
	log.Printf("Found %d runs to backup", totalCount)

	// Execute backup based on format
	switch cfg.Format {
	case FormatCSV:
		if err := backupToCSV(ctx, pool, query, cfg.Output+".csv", totalCount); err != nil {
			log.Fatalf("CSV backup failed: %v", err)
		}
	case FormatJSON:
		if err := backupToJSON(ctx, pool, query, cfg.Output+".json", totalCount); err != nil {
			log.Fatalf("JSON backup failed: %v", err)
		}
	case FormatSQL:
		if err := backupToSQL(ctx, pool, query, cfg.Output+".sql", totalCount); err != nil {
			log.Fatalf("SQL backup failed: %v", err)
		}
	}

	log.Printf("Backup completed successfully")
}

// buildQueries assembles the data and count queries from the configured
// filters. Soft-deleted runs are excluded unless asked for.
func buildQueries(cfg Config) (string, string) {
	var conds []string
	if !cfg.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if cfg.Project != "" {
		conds = append(conds, fmt.Sprintf("project = '%s'", strings.ReplaceAll(cfg.Project, "'", "''")))
	}
	if cfg.Query != "" {
		conds = append(conds, "("+cfg.Query+")")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	query := "SELECT * FROM analysis_runs" + where + " ORDER BY generated_at"
	countQuery := "SELECT COUNT(*) FROM analysis_runs" + where
	return query, countQuery
}

// formatCell renders one column value as CSV text. JSONB columns come back
// from pgx as decoded maps or slices and are re-encoded as JSON text;
// numeric columns decode as pgtype.Numeric.
func formatCell(val interface{}) (string, error) {
	switch v := val.(type) {
	case nil:
		return "", nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil {
			return "", err
		}
		if !f.Valid {
			return "", nil
		}
		return strconv.FormatFloat(f.Float64, 'g', -1, 64), nil
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// sqlLiteral renders one column value as a SQL literal for INSERT output.
func sqlLiteral(val interface{}) (string, error) {
	switch v := val.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case time.Time:
		return "'" + v.UTC().Format(time.RFC3339Nano) + "'", nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	case int, int16, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case float32, float64:
		return fmt.Sprintf("%v", v), nil
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil {
			return "", err
		}
		if !f.Valid {
			return "NULL", nil
		}
		return strconv.FormatFloat(f.Float64, 'g', -1, 64), nil
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return "'" + strings.ReplaceAll(string(b), "'", "''") + "'", nil
	default:
		return "", fmt.Errorf("no SQL literal for column type %T", v)
	}
}

func backupToCSV(ctx context.Context, pool *pgxpool.Pool, query string, filename string, totalCount int64) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	// Column names and order come from the query result
	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	count := int64(0)
	lastProgress := -1
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		record := make([]string, len(columns))
		for i, val := range values {
			cell, err := formatCell(val)
			if err != nil {
				return fmt.Errorf("failed to format column %s: %w", columns[i], err)
			}
			record[i] = cell
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}

		count++
		logProgress(count, totalCount, &lastProgress)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	log.Printf("Exported %d runs to %s", count, filename)
	return nil
}

func backupToJSON(ctx context.Context, pool *pgxpool.Pool, query string, filename string, totalCount int64) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// Start JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return err
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("  ", "  ")

	count := int64(0)
	lastProgress := -1
	first := true
	for rows.Next() {
		values, err := pgx.RowToMap(rows)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		// Add comma between records
		if !first {
			if _, err := file.WriteString(",\n"); err != nil {
				return err
			}
		}
		first = false

		if _, err := file.WriteString("  "); err != nil {
			return err
		}
		if err := encoder.Encode(values); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}

		count++
		logProgress(count, totalCount, &lastProgress)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	// Close JSON array
	if _, err := file.WriteString("\n]"); err != nil {
		return err
	}

	log.Printf("Exported %d runs to %s", count, filename)
	return nil
}

func backupToSQL(ctx context.Context, pool *pgxpool.Pool, query string, filename string, totalCount int64) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// Write header
	fmt.Fprintf(file, "-- Analysis run backup generated on %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "-- Query: %s\n", query)
	fmt.Fprintln(file, "-- This backup uses explicit column names to handle schema changes")
	fmt.Fprintln(file, "\nBEGIN;")
	fmt.Fprintln(file)

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}
	columnList := strings.Join(columns, ", ")

	count := int64(0)
	lastProgress := -1

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		vals := make([]string, len(values))
		for i, val := range values {
			lit, err := sqlLiteral(val)
			if err != nil {
				return fmt.Errorf("failed to format column %s: %w", columns[i], err)
			}
			vals[i] = lit
		}

		fmt.Fprintf(file, "INSERT INTO analysis_runs (%s) VALUES (%s);\n",
			columnList, strings.Join(vals, ", "))

		count++
		logProgress(count, totalCount, &lastProgress)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	fmt.Fprintln(file, "\nCOMMIT;")

	log.Printf("Exported %d runs to %s", count, filename)
	return nil
}

// logProgress logs at each percentage point, or every 10000 rows when the
// total is unknown.
func logProgress(count, totalCount int64, lastProgress *int) {
	if totalCount > 0 {
		progress := int(count * 100 / totalCount)
		if progress != *lastProgress {
			log.Printf("Progress: %d%% (%d/%d runs)", progress, count, totalCount)
			*lastProgress = progress
		}
	} else if count%10000 == 0 {
		log.Printf("Processed %d runs...", count)
	}
}
