package analysis

import (
	"time"

	"github.com/google/uuid"
)

// Stage marks how far a run advanced through the pipeline.
type Stage string

const (
	StageEmpty      Stage = "empty"
	StageClustered  Stage = "clustered"
	StageSegmented  Stage = "segmented"
	StageAggregated Stage = "aggregated"
)

// Location is a site coordinate in decimal degrees. It is owned by the
// caller and shared read-only across all yield lookups in a run.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Segment is one uniformly-oriented roof surface with its yield estimate.
// AnnualKWh is nil until the aggregation stage reaches the segment: a
// failed lookup records 0 plus a Warning, a skipped run leaves it nil.
type Segment struct {
	ID            string   `json:"segment_id"`
	AreaM2        float64  `json:"area_m2"`
	TiltDeg       float64  `json:"tilt_deg"`
	AzimuthDeg    float64  `json:"azimuth_deg"`
	TriangleCount int      `json:"triangle_count"`
	CapacityKW    float64  `json:"capacity_kw"`
	AnnualKWh     *float64 `json:"annual_kwh"`
	Warning       string   `json:"warning,omitempty"`
}

// Result is the immutable outcome of one analysis run. OK is false only
// when the whole result is meaningless; partial results (geometry without
// yields) keep OK true and explain themselves through Warnings.
type Result struct {
	RunID  string `json:"run_id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Stage  Stage  `json:"stage"`

	Project      string    `json:"project,omitempty"`
	SourceFile   string    `json:"source_file,omitempty"`
	Location     *Location `json:"location,omitempty"`
	TrueNorthDeg float64   `json:"true_north_deg"`
	FloorAreaM2  float64   `json:"floor_area_m2,omitempty"`
	WindowAreaM2 float64   `json:"window_area_m2,omitempty"`
	Estimator    string    `json:"estimator,omitempty"`

	Segments           []Segment `json:"segments"`
	TotalAreaM2        float64   `json:"total_area_m2"`
	TotalCapacityKW    float64   `json:"total_capacity_kw"`
	TotalProductionKWh *float64  `json:"total_production_kwh"`
	ConsumptionKWh     float64   `json:"consumption_kwh"`
	Score              *float64  `json:"leed_score"`

	Warnings    []string  `json:"warnings,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Failed builds the structured result callers hand to users when a run
// cannot start at all, such as an unreadable site document.
func Failed(reason string) *Result {
	return &Result{
		RunID:       uuid.New().String(),
		OK:          false,
		Reason:      reason,
		Stage:       StageEmpty,
		GeneratedAt: time.Now().UTC(),
	}
}

// ProductionKWh returns the total production, or 0 when yields were never
// aggregated.
func (r *Result) ProductionKWh() float64 {
	if r.TotalProductionKWh == nil {
		return 0
	}
	return *r.TotalProductionKWh
}
