package storage

import (
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgtype"

	"github.com/chrissnell/roofwatts/internal/analysis"
)

func sampleResult() *analysis.Result {
	kwh1 := 18342.5
	zero := 0.0
	production := 18342.5
	score := 28.4

	return &analysis.Result{
		RunID:        "4bd7a0c3-3c7e-4ee1-9b6a-0a4a8e6f2f10",
		OK:           true,
		Stage:        analysis.StageAggregated,
		Project:      "Maple Street Duplex",
		SourceFile:   "duplex.ifc",
		Location:     &analysis.Location{Latitude: 47.6062, Longitude: -122.3321},
		TrueNorthDeg: 14.5,
		FloorAreaM2:  430,
		Estimator:    "pvwatts",
		Segments: []analysis.Segment{
			{ID: "Roof_Seg_01", AreaM2: 82.6, TiltDeg: 30, AzimuthDeg: 144.5, TriangleCount: 2, CapacityKW: 16.52, AnnualKWh: &kwh1},
			{ID: "Roof_Seg_02", AreaM2: 82.6, TiltDeg: 30, AzimuthDeg: 324.5, TriangleCount: 2, CapacityKW: 16.52, AnnualKWh: &zero, Warning: "yield lookup failed: service unavailable"},
		},
		TotalAreaM2:        165.2,
		TotalCapacityKW:    33.04,
		TotalProductionKWh: &production,
		ConsumptionKWh:     64500,
		Score:              &score,
		Warnings:           []string{"computed roof area 165.20 m² differs from declared 90.00 m² by 84%"},
		GeneratedAt:        time.Date(2025, 6, 12, 17, 4, 5, 0, time.UTC),
	}
}

func TestNewAnalysisRun(t *testing.T) {
	res := sampleResult()
	run, err := NewAnalysisRun(res)
	if err != nil {
		t.Fatalf("NewAnalysisRun() error: %v", err)
	}

	if run.RunID != res.RunID || !run.OK || run.Stage != "aggregated" {
		t.Errorf("run identity = %q/%v/%q, want mirrored from the result", run.RunID, run.OK, run.Stage)
	}
	if run.Latitude == nil || *run.Latitude != 47.6062 {
		t.Errorf("latitude = %v, want 47.6062", run.Latitude)
	}
	if run.SegmentCount != 2 {
		t.Errorf("segment count = %d, want 2", run.SegmentCount)
	}
	if run.TotalProductionKWh == nil || *run.TotalProductionKWh != 18342.5 {
		t.Errorf("production = %v, want 18342.5", run.TotalProductionKWh)
	}
	if run.Score == nil || *run.Score != 28.4 {
		t.Errorf("score = %v, want 28.4", run.Score)
	}
	if run.Segments.Status != pgtype.Present {
		t.Fatal("segments JSONB not populated")
	}
	if run.Warnings.Status != pgtype.Present {
		t.Fatal("warnings JSONB not populated")
	}
}

func TestAnalysisRunResultRoundTrip(t *testing.T) {
	want := sampleResult()
	run, err := NewAnalysisRun(want)
	if err != nil {
		t.Fatalf("NewAnalysisRun() error: %v", err)
	}

	got, err := run.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round-tripped result differs:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestNewAnalysisRunGeometryOnly(t *testing.T) {
	res := &analysis.Result{
		RunID:       "c3a1b9a2-5ad1-4f7c-8f10-94b2f2a7d001",
		OK:          true,
		Stage:       analysis.StageSegmented,
		Segments:    nil,
		Warnings:    nil,
		GeneratedAt: time.Now().UTC(),
	}

	run, err := NewAnalysisRun(res)
	if err != nil {
		t.Fatalf("NewAnalysisRun() error: %v", err)
	}
	if run.Latitude != nil || run.Longitude != nil {
		t.Error("geometry-only run stored a location")
	}
	if run.TotalProductionKWh != nil || run.Score != nil {
		t.Error("geometry-only run stored production totals")
	}

	// Empty collections land as JSON arrays, never null.
	if string(run.Segments.Bytes) != "[]" {
		t.Errorf("segments JSONB = %s, want []", run.Segments.Bytes)
	}
	if string(run.Warnings.Bytes) != "[]" {
		t.Errorf("warnings JSONB = %s, want []", run.Warnings.Bytes)
	}
}
