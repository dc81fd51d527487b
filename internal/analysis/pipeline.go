package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/roofwatts/internal/log"
	"github.com/chrissnell/roofwatts/internal/roof"
	"github.com/chrissnell/roofwatts/internal/yield"
	"github.com/chrissnell/roofwatts/pkg/geom"
	"github.com/chrissnell/roofwatts/pkg/leed"
)

// declaredAreaWarnFraction is the allowed relative difference between the
// computed segment area and a declared property-set roof area before the
// run carries a geometry warning.
const declaredAreaWarnFraction = 0.20

// Input is one building's mesh and metadata, as produced by the site
// document loader or an upstream parser.
type Input struct {
	Project      string
	SourceFile   string
	Mesh         []geom.Triangle
	TrueNorthDeg float64

	// Location may be nil, in which case the run stops after segmentation
	// (geometry-only mode).
	Location *Location

	FloorAreaM2  float64
	WindowAreaM2 float64

	// DeclaredRoofAreaM2 is the roof area the authoring tool recorded, 0
	// if unknown. Used only to cross-check the computed geometry.
	DeclaredRoofAreaM2 float64
}

// Analyzer runs the pipeline with one fixed configuration. The estimator
// may be nil to force geometry-only runs.
type Analyzer struct {
	cfg       Config
	estimator yield.Estimator
}

// New validates cfg and builds an Analyzer. Invalid configuration is
// rejected here, before any computation starts.
func New(cfg Config, estimator yield.Estimator) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	return &Analyzer{cfg: cfg, estimator: estimator}, nil
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// EstimatorName returns the name of the configured yield estimator, or ""
// when the analyzer runs geometry-only.
func (a *Analyzer) EstimatorName() string {
	if a.estimator == nil {
		return ""
	}
	return a.estimator.Name()
}

// Run executes the full pipeline over one building. It always returns a
// structured result: geometric degeneracies are excluded locally, failed
// yield lookups surface as per-segment warnings, and cancellation returns
// the partial result computed so far.
func (a *Analyzer) Run(ctx context.Context, in Input) *Result {
	res := &Result{
		RunID:        uuid.New().String(),
		OK:           true,
		Stage:        StageEmpty,
		Project:      in.Project,
		SourceFile:   in.SourceFile,
		Location:     in.Location,
		TrueNorthDeg: in.TrueNorthDeg,
		FloorAreaM2:  in.FloorAreaM2,
		WindowAreaM2: in.WindowAreaM2,
		GeneratedAt:  time.Now().UTC(),
	}
	res.ConsumptionKWh = a.consumptionKWh(in.FloorAreaM2)

	faces := geom.ExtractFaces(in.Mesh)
	if n := countDegenerate(faces); n > 0 {
		log.Debugf("excluded %d degenerate triangles from %d", n, len(faces))
	}

	clusters := roof.ClusterByOrientation(faces, a.cfg.AngleToleranceDeg)
	res.Stage = StageClustered

	segments := roof.BuildSegments(faces, clusters, roof.SegmentParams{
		MinAreaM2:    a.cfg.MinSegmentAreaM2,
		TrueNorthDeg: in.TrueNorthDeg,
	})
	res.Segments = a.toAnalysisSegments(segments)
	res.Stage = StageSegmented
	a.totalGeometry(res)

	a.crossValidateArea(res, in.DeclaredRoofAreaM2)

	if len(res.Segments) == 0 {
		res.Warnings = append(res.Warnings, "no roof segments found")
	}

	switch {
	case a.estimator == nil:
		res.Warnings = append(res.Warnings, "yield estimation skipped: no estimator configured")
		return res
	case in.Location == nil:
		res.Warnings = append(res.Warnings, "yield estimation skipped: site location unknown")
		return res
	}

	res.Estimator = a.estimator.Name()
	a.aggregate(ctx, res, *in.Location)
	res.Stage = StageAggregated
	return res
}

// SegmentOnly runs geometry extraction and segmentation without any yield
// lookups, regardless of estimator or location.
func (a *Analyzer) SegmentOnly(in Input) *Result {
	geo := *a
	geo.estimator = nil
	return geo.Run(context.Background(), in)
}

func (a *Analyzer) toAnalysisSegments(in []roof.Segment) []Segment {
	out := make([]Segment, len(in))
	for i, s := range in {
		out[i] = Segment{
			ID:            s.ID,
			AreaM2:        s.AreaM2,
			TiltDeg:       s.TiltDeg,
			AzimuthDeg:    s.AzimuthDeg,
			TriangleCount: s.TriangleCount,
			CapacityKW:    round2(s.AreaM2 * a.cfg.PanelEfficiency),
		}
	}
	return out
}

func (a *Analyzer) totalGeometry(res *Result) {
	var area, capacity float64
	for _, s := range res.Segments {
		area += s.AreaM2
		capacity += s.CapacityKW
	}
	res.TotalAreaM2 = round2(area)
	res.TotalCapacityKW = round2(capacity)
}

// crossValidateArea compares the computed segment total against the roof
// area the authoring tool declared, if any. A large mismatch usually means
// the mesh includes non-roof surfaces or the declared value is stale.
func (a *Analyzer) crossValidateArea(res *Result, declaredM2 float64) {
	if declaredM2 <= 0 || res.TotalAreaM2 <= 0 {
		return
	}
	diff := math.Abs(res.TotalAreaM2-declaredM2) / declaredM2
	if diff > declaredAreaWarnFraction {
		w := fmt.Sprintf("computed roof area %.2f m² differs from declared %.2f m² by %.0f%%",
			res.TotalAreaM2, declaredM2, diff*100)
		log.Warnf("%s", w)
		res.Warnings = append(res.Warnings, w)
	}
}

func (a *Analyzer) consumptionKWh(floorAreaM2 float64) float64 {
	if floorAreaM2 > 0 {
		return round2(floorAreaM2 * a.cfg.ConsumptionKWhPerM2)
	}
	return a.cfg.FallbackConsumptionKWh
}

func countDegenerate(faces []geom.FaceRecord) int {
	var n int
	for _, f := range faces {
		if f.Degenerate {
			n++
		}
	}
	return n
}

func scorePtr(production, consumption float64) *float64 {
	s := leed.Score(production, consumption)
	return &s
}
