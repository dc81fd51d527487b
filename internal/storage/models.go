package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	"gorm.io/gorm"

	"github.com/chrissnell/roofwatts/internal/analysis"
)

// AnalysisRun is one stored analysis result. Scalar columns carry the
// totals for querying; Segments and Warnings keep the full detail as JSONB.
type AnalysisRun struct {
	gorm.Model

	RunID  string `gorm:"column:run_id;uniqueIndex;not null"`
	OK     bool   `gorm:"column:ok;not null"`
	Reason string `gorm:"column:reason"`
	Stage  string `gorm:"column:stage;not null"`

	Project      string   `gorm:"column:project;index"`
	SourceFile   string   `gorm:"column:source_file"`
	Latitude     *float64 `gorm:"column:latitude"`
	Longitude    *float64 `gorm:"column:longitude"`
	TrueNorthDeg float64  `gorm:"column:true_north_deg"`
	FloorAreaM2  float64  `gorm:"column:floor_area_m2"`
	WindowAreaM2 float64  `gorm:"column:window_area_m2"`
	Estimator    string   `gorm:"column:estimator"`

	SegmentCount       int      `gorm:"column:segment_count"`
	TotalAreaM2        float64  `gorm:"column:total_area_m2"`
	TotalCapacityKW    float64  `gorm:"column:total_capacity_kw"`
	TotalProductionKWh *float64 `gorm:"column:total_production_kwh"`
	ConsumptionKWh     float64  `gorm:"column:consumption_kwh"`
	Score              *float64 `gorm:"column:score"`

	GeneratedAt time.Time `gorm:"column:generated_at;index;not null"`

	Segments pgtype.JSONB `gorm:"column:segments;type:jsonb;default:'[]';not null"`
	Warnings pgtype.JSONB `gorm:"column:warnings;type:jsonb;default:'[]';not null"`
}

// TableName specifies the table name for AnalysisRun
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// NewAnalysisRun converts an analysis result into its storable row.
func NewAnalysisRun(res *analysis.Result) (*AnalysisRun, error) {
	run := &AnalysisRun{
		RunID:              res.RunID,
		OK:                 res.OK,
		Reason:             res.Reason,
		Stage:              string(res.Stage),
		Project:            res.Project,
		SourceFile:         res.SourceFile,
		TrueNorthDeg:       res.TrueNorthDeg,
		FloorAreaM2:        res.FloorAreaM2,
		WindowAreaM2:       res.WindowAreaM2,
		Estimator:          res.Estimator,
		SegmentCount:       len(res.Segments),
		TotalAreaM2:        res.TotalAreaM2,
		TotalCapacityKW:    res.TotalCapacityKW,
		TotalProductionKWh: res.TotalProductionKWh,
		ConsumptionKWh:     res.ConsumptionKWh,
		Score:              res.Score,
		GeneratedAt:        res.GeneratedAt,
	}
	if res.Location != nil {
		run.Latitude = &res.Location.Latitude
		run.Longitude = &res.Location.Longitude
	}

	segments := res.Segments
	if segments == nil {
		segments = []analysis.Segment{}
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("could not marshal segments to JSON: %w", err)
	}
	if err := run.Segments.Set(segmentsJSON); err != nil {
		return nil, fmt.Errorf("could not set segments JSONB: %w", err)
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("could not marshal warnings to JSON: %w", err)
	}
	if err := run.Warnings.Set(warningsJSON); err != nil {
		return nil, fmt.Errorf("could not set warnings JSONB: %w", err)
	}

	return run, nil
}

// Result reconstructs the analysis result stored in this row.
func (r *AnalysisRun) Result() (*analysis.Result, error) {
	res := &analysis.Result{
		RunID:              r.RunID,
		OK:                 r.OK,
		Reason:             r.Reason,
		Stage:              analysis.Stage(r.Stage),
		Project:            r.Project,
		SourceFile:         r.SourceFile,
		TrueNorthDeg:       r.TrueNorthDeg,
		FloorAreaM2:        r.FloorAreaM2,
		WindowAreaM2:       r.WindowAreaM2,
		Estimator:          r.Estimator,
		TotalAreaM2:        r.TotalAreaM2,
		TotalCapacityKW:    r.TotalCapacityKW,
		TotalProductionKWh: r.TotalProductionKWh,
		ConsumptionKWh:     r.ConsumptionKWh,
		Score:              r.Score,
		GeneratedAt:        r.GeneratedAt,
	}
	if r.Latitude != nil && r.Longitude != nil {
		res.Location = &analysis.Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}

	if r.Segments.Status == pgtype.Present {
		if err := json.Unmarshal(r.Segments.Bytes, &res.Segments); err != nil {
			return nil, fmt.Errorf("could not unmarshal stored segments: %w", err)
		}
	}
	if r.Warnings.Status == pgtype.Present {
		if err := json.Unmarshal(r.Warnings.Bytes, &res.Warnings); err != nil {
			return nil, fmt.Errorf("could not unmarshal stored warnings: %w", err)
		}
	}

	return res, nil
}
