package analysis

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chrissnell/roofwatts/internal/yield"
	"github.com/chrissnell/roofwatts/pkg/geom"
)

// stubEstimator answers yield lookups from fn and records every request it
// sees. A nil fn returns a fixed value. Safe for concurrent use.
type stubEstimator struct {
	mu    sync.Mutex
	calls []yield.Request
	fn    func(req yield.Request) (float64, error)
}

func (s *stubEstimator) EstimateAnnualKWh(ctx context.Context, req yield.Request) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(req)
	}
	return 12345.678, nil
}

func (s *stubEstimator) Name() string { return "stub" }

func (s *stubEstimator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MinInterCallDelay = 0
	return cfg
}

// gableMesh is two 82.6 m² pitches at 30 degrees, ridge running northwest
// to southeast.
func gableMesh() []geom.Triangle {
	return append(
		geom.TiltedRect(30, 130, 10, 8.26, r3.Vec{}),
		geom.TiltedRect(30, 310, 10, 8.26, r3.Vec{})...,
	)
}

// threePanelMesh is three 25 m² panels at well-separated orientations, so
// clustering yields one segment per panel in mesh order.
func threePanelMesh() []geom.Triangle {
	mesh := geom.TiltedRect(10, 90, 5, 5, r3.Vec{})
	mesh = append(mesh, geom.TiltedRect(30, 180, 5, 5, r3.Vec{X: 20})...)
	mesh = append(mesh, geom.TiltedRect(50, 270, 5, 5, r3.Vec{X: 40})...)
	return mesh
}

func hasWarning(res *Result, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero panel efficiency", func(c *Config) { c.PanelEfficiency = 0 }},
		{"panel efficiency above one", func(c *Config) { c.PanelEfficiency = 1.5 }},
		{"negative system losses", func(c *Config) { c.SystemLossesPct = -1 }},
		{"system losses at 100", func(c *Config) { c.SystemLossesPct = 100 }},
		{"zero angle tolerance", func(c *Config) { c.AngleToleranceDeg = 0 }},
		{"angle tolerance above 90", func(c *Config) { c.AngleToleranceDeg = 91 }},
		{"negative minimum area", func(c *Config) { c.MinSegmentAreaM2 = -1 }},
		{"negative inter-call delay", func(c *Config) { c.MinInterCallDelay = -time.Second }},
		{"zero concurrent lookups", func(c *Config) { c.MaxConcurrentLookups = 0 }},
		{"zero consumption benchmark", func(c *Config) { c.ConsumptionKWhPerM2 = 0 }},
		{"zero fallback consumption", func(c *Config) { c.FallbackConsumptionKWh = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, nil); err == nil {
				t.Errorf("New() accepted invalid config %+v", cfg)
			}
		})
	}

	if _, err := New(DefaultConfig(), nil); err != nil {
		t.Fatalf("New() rejected the default config: %v", err)
	}
}

func TestRunFullPipeline(t *testing.T) {
	stub := &stubEstimator{}
	a, err := New(fastConfig(), stub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res := a.Run(context.Background(), Input{
		Project:     "Maple Street Duplex",
		Mesh:        gableMesh(),
		Location:    &Location{Latitude: 47.6062, Longitude: -122.3321},
		FloorAreaM2: 430,
	})

	if !res.OK || res.Reason != "" {
		t.Fatalf("Run() not OK: reason %q", res.Reason)
	}
	if res.Stage != StageAggregated {
		t.Fatalf("Run() stage = %q, want %q", res.Stage, StageAggregated)
	}
	if res.RunID == "" {
		t.Error("Run() left RunID empty")
	}
	if res.Estimator != "stub" {
		t.Errorf("Run() estimator = %q, want stub", res.Estimator)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("Run() produced %d segments, want 2", len(res.Segments))
	}

	for i, s := range res.Segments {
		if math.Abs(s.AreaM2-82.6) > 0.01 {
			t.Errorf("segment %d area = %v, want 82.6", i, s.AreaM2)
		}
		if math.Abs(s.CapacityKW-16.52) > 0.01 {
			t.Errorf("segment %d capacity = %v, want 16.52", i, s.CapacityKW)
		}
		if s.AnnualKWh == nil {
			t.Fatalf("segment %d has no yield", i)
		}
		if math.Abs(*s.AnnualKWh-12345.68) > 1e-9 {
			t.Errorf("segment %d yield = %v, want 12345.68", i, *s.AnnualKWh)
		}
		if s.Warning != "" {
			t.Errorf("segment %d has unexpected warning %q", i, s.Warning)
		}
	}

	if math.Abs(res.TotalAreaM2-165.2) > 0.01 {
		t.Errorf("total area = %v, want 165.2", res.TotalAreaM2)
	}
	if math.Abs(res.TotalCapacityKW-33.04) > 0.01 {
		t.Errorf("total capacity = %v, want 33.04", res.TotalCapacityKW)
	}
	if res.TotalProductionKWh == nil || math.Abs(*res.TotalProductionKWh-24691.36) > 1e-9 {
		t.Errorf("total production = %v, want 24691.36", res.TotalProductionKWh)
	}
	if math.Abs(res.ConsumptionKWh-64500) > 1e-9 {
		t.Errorf("consumption = %v, want 64500", res.ConsumptionKWh)
	}
	if res.Score == nil || math.Abs(*res.Score-38.3) > 1e-9 {
		t.Errorf("score = %v, want 38.3", res.Score)
	}

	if stub.callCount() != 2 {
		t.Fatalf("estimator saw %d calls, want 2", stub.callCount())
	}
	for i, req := range stub.calls {
		if req.Latitude != 47.6062 || req.Longitude != -122.3321 {
			t.Errorf("call %d location = (%v, %v), want site location", i, req.Latitude, req.Longitude)
		}
		if math.Abs(req.SystemCapacityKW-16.52) > 1e-9 {
			t.Errorf("call %d capacity = %v, want 16.52", i, req.SystemCapacityKW)
		}
		if math.Abs(req.TiltDeg-30) > 0.5 {
			t.Errorf("call %d tilt = %v, want 30", i, req.TiltDeg)
		}
		if req.SystemLossesPct != 14 {
			t.Errorf("call %d losses = %v, want 14", i, req.SystemLossesPct)
		}
	}
}

func TestRunYieldFailureIsolation(t *testing.T) {
	stub := &stubEstimator{
		fn: func(req yield.Request) (float64, error) {
			if req.TiltDeg == 30 {
				return 0, errors.New("service unavailable")
			}
			return req.TiltDeg * 100, nil
		},
	}
	a, err := New(fastConfig(), stub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res := a.Run(context.Background(), Input{
		Mesh:     threePanelMesh(),
		Location: &Location{Latitude: 40, Longitude: -105},
	})

	if !res.OK {
		t.Fatalf("Run() not OK after one failed lookup: reason %q", res.Reason)
	}
	if res.Stage != StageAggregated {
		t.Fatalf("Run() stage = %q, want %q", res.Stage, StageAggregated)
	}
	if len(res.Segments) != 3 {
		t.Fatalf("Run() produced %d segments, want 3", len(res.Segments))
	}

	tests := []struct {
		idx         int
		wantKWh     float64
		wantFailure bool
	}{
		{0, 1000, false},
		{1, 0, true},
		{2, 5000, false},
	}
	for _, tt := range tests {
		s := res.Segments[tt.idx]
		if s.AnnualKWh == nil {
			t.Fatalf("segment %d has nil yield after aggregation", tt.idx)
		}
		if math.Abs(*s.AnnualKWh-tt.wantKWh) > 1e-9 {
			t.Errorf("segment %d yield = %v, want %v", tt.idx, *s.AnnualKWh, tt.wantKWh)
		}
		if tt.wantFailure && !strings.Contains(s.Warning, "yield lookup failed") {
			t.Errorf("segment %d warning = %q, want a lookup failure", tt.idx, s.Warning)
		}
		if !tt.wantFailure && s.Warning != "" {
			t.Errorf("segment %d has unexpected warning %q", tt.idx, s.Warning)
		}
	}

	if res.TotalProductionKWh == nil || math.Abs(*res.TotalProductionKWh-6000) > 1e-9 {
		t.Errorf("total production = %v, want 6000 from the two successful lookups", res.TotalProductionKWh)
	}
	if hasWarning(res, "cancelled") {
		t.Error("Run() carries a cancellation warning on a completed run")
	}
}

func TestRunResultsLandBySegment(t *testing.T) {
	// Later lookups finish first, so results must land by segment, not by
	// completion order.
	stub := &stubEstimator{
		fn: func(req yield.Request) (float64, error) {
			time.Sleep(time.Duration(60-req.TiltDeg) * time.Millisecond / 10)
			return req.TiltDeg * 1000, nil
		},
	}
	cfg := fastConfig()
	cfg.MaxConcurrentLookups = 4
	a, err := New(cfg, stub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res := a.Run(context.Background(), Input{
		Mesh:     threePanelMesh(),
		Location: &Location{Latitude: 40, Longitude: -105},
	})

	if len(res.Segments) != 3 {
		t.Fatalf("Run() produced %d segments, want 3", len(res.Segments))
	}
	for i, s := range res.Segments {
		if s.AnnualKWh == nil {
			t.Fatalf("segment %d has nil yield", i)
		}
		want := s.TiltDeg * 1000
		if math.Abs(*s.AnnualKWh-want) > 1e-9 {
			t.Errorf("segment %d yield = %v, want %v for tilt %v", i, *s.AnnualKWh, want, s.TiltDeg)
		}
	}
}

func TestRunGeometryOnlyWhenLocationUnknown(t *testing.T) {
	stub := &stubEstimator{}
	a, err := New(fastConfig(), stub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res := a.Run(context.Background(), Input{Mesh: gableMesh()})

	if !res.OK {
		t.Fatalf("Run() not OK without a location: reason %q", res.Reason)
	}
	if res.Stage != StageSegmented {
		t.Errorf("Run() stage = %q, want %q", res.Stage, StageSegmented)
	}
	if !hasWarning(res, "site location unknown") {
		t.Errorf("Run() warnings = %v, want a location warning", res.Warnings)
	}
	if res.Estimator != "" {
		t.Errorf("Run() estimator = %q, want empty in geometry-only mode", res.Estimator)
	}
	for i, s := range res.Segments {
		if s.AnnualKWh != nil {
			t.Errorf("segment %d has a yield without a location", i)
		}
	}
	if res.TotalProductionKWh != nil || res.Score != nil {
		t.Error("Run() filled production totals without a location")
	}
	if res.TotalAreaM2 <= 0 || res.TotalCapacityKW <= 0 {
		t.Error("Run() skipped geometry totals in geometry-only mode")
	}
	if res.ConsumptionKWh != a.Config().FallbackConsumptionKWh {
		t.Errorf("consumption = %v, want the fallback benchmark", res.ConsumptionKWh)
	}
	if stub.callCount() != 0 {
		t.Errorf("estimator saw %d calls in geometry-only mode", stub.callCount())
	}
}

func TestRunWithoutEstimator(t *testing.T) {
	a, err := New(fastConfig(), nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res := a.Run(context.Background(), Input{
		Mesh:     gableMesh(),
		Location: &Location{Latitude: 40, Longitude: -105},
	})

	if res.Stage != StageSegmented {
		t.Errorf("Run() stage = %q, want %q", res.Stage, StageSegmented)
	}
	if !hasWarning(res, "no estimator configured") {
		t.Errorf("Run() warnings = %v, want a missing-estimator warning", res.Warnings)
	}
}

func TestSegmentOnlySkipsLookups(t *testing.T) {
	stub := &stubEstimator{}
	a, err := New(fastConfig(), stub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	res := a.SegmentOnly(Input{
		Mesh:     gableMesh(),
		Location: &Location{Latitude: 40, Longitude: -105},
	})

	if res.Stage != StageSegmented {
		t.Errorf("SegmentOnly() stage = %q, want %q", res.Stage, StageSegmented)
	}
	if stub.callCount() != 0 {
		t.Errorf("SegmentOnly() made %d estimator calls", stub.callCount())
	}
	if len(res.Segments) != 2 {
		t.Errorf("SegmentOnly() produced %d segments, want 2", len(res.Segments))
	}
}

func TestRunUnusableMesh(t *testing.T) {
	tests := []struct {
		name string
		mesh []geom.Triangle
	}{
		{"empty mesh", nil},
		{"degenerate and downward only", []geom.Triangle{
			{A: r3.Vec{}, B: r3.Vec{X: 1}, C: r3.Vec{X: 2}},
			{A: r3.Vec{}, B: r3.Vec{Y: 1}, C: r3.Vec{X: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubEstimator{}
			a, err := New(fastConfig(), stub)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}

			res := a.Run(context.Background(), Input{
				Mesh:     tt.mesh,
				Location: &Location{Latitude: 40, Longitude: -105},
			})

			if !res.OK {
				t.Fatalf("Run() not OK for an unusable mesh: reason %q", res.Reason)
			}
			if len(res.Segments) != 0 {
				t.Fatalf("Run() produced %d segments, want 0", len(res.Segments))
			}
			if !hasWarning(res, "no roof segments found") {
				t.Errorf("Run() warnings = %v, want a no-segments warning", res.Warnings)
			}
			if res.Stage != StageAggregated {
				t.Errorf("Run() stage = %q, want %q", res.Stage, StageAggregated)
			}
			if res.ProductionKWh() != 0 {
				t.Errorf("production = %v, want 0", res.ProductionKWh())
			}
			if stub.callCount() != 0 {
				t.Errorf("estimator saw %d calls with no segments", stub.callCount())
			}
		})
	}
}

func TestRunIdempotence(t *testing.T) {
	in := Input{
		Mesh:        threePanelMesh(),
		Location:    &Location{Latitude: 40, Longitude: -105},
		FloorAreaM2: 250,
	}
	stub := &stubEstimator{
		fn: func(req yield.Request) (float64, error) { return req.TiltDeg * 123.4, nil },
	}
	a, err := New(fastConfig(), stub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	first := a.Run(context.Background(), in)
	second := a.Run(context.Background(), in)

	if first.RunID == second.RunID {
		t.Error("repeated runs share a RunID")
	}
	if !reflect.DeepEqual(first.Segments, second.Segments) {
		t.Errorf("segments differ between runs:\n%+v\n%+v", first.Segments, second.Segments)
	}
	if first.TotalAreaM2 != second.TotalAreaM2 ||
		first.TotalCapacityKW != second.TotalCapacityKW ||
		first.ProductionKWh() != second.ProductionKWh() ||
		first.ConsumptionKWh != second.ConsumptionKWh {
		t.Error("totals differ between runs over the same input")
	}
	if *first.Score != *second.Score {
		t.Errorf("score differs between runs: %v vs %v", *first.Score, *second.Score)
	}
}

func TestRunConsumptionBenchmark(t *testing.T) {
	tests := []struct {
		name        string
		floorAreaM2 float64
		want        float64
	}{
		{"from floor area", 430, 64500},
		{"fallback when floor area unknown", 0, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(fastConfig(), nil)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			res := a.Run(context.Background(), Input{
				Mesh:        gableMesh(),
				FloorAreaM2: tt.floorAreaM2,
			})
			if math.Abs(res.ConsumptionKWh-tt.want) > 1e-9 {
				t.Errorf("consumption = %v, want %v", res.ConsumptionKWh, tt.want)
			}
		})
	}
}

func TestRunCrossValidatesDeclaredArea(t *testing.T) {
	tests := []struct {
		name       string
		declaredM2 float64
		wantWarn   bool
	}{
		{"no declared area", 0, false},
		{"declared area agrees", 170, false},
		{"declared area far off", 320, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(fastConfig(), nil)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			res := a.Run(context.Background(), Input{
				Mesh:               gableMesh(),
				DeclaredRoofAreaM2: tt.declaredM2,
			})
			got := hasWarning(res, "differs from declared")
			if got != tt.wantWarn {
				t.Errorf("area warning = %v, want %v (warnings %v)", got, tt.wantWarn, res.Warnings)
			}
		})
	}
}

func TestRunCancellationKeepsPartialResults(t *testing.T) {
	firstCall := make(chan struct{})
	var once sync.Once
	stub := &stubEstimator{
		fn: func(req yield.Request) (float64, error) {
			once.Do(func() { close(firstCall) })
			return 2000, nil
		},
	}
	cfg := fastConfig()
	cfg.MinInterCallDelay = 50 * time.Millisecond
	a, err := New(cfg, stub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-firstCall
		cancel()
	}()

	res := a.Run(ctx, Input{
		Mesh:     threePanelMesh(),
		Location: &Location{Latitude: 40, Longitude: -105},
	})

	if !res.OK {
		t.Fatalf("Run() not OK after cancellation: reason %q", res.Reason)
	}
	if res.Stage != StageAggregated {
		t.Errorf("Run() stage = %q, want %q", res.Stage, StageAggregated)
	}
	if !hasWarning(res, "cancelled after dispatching") {
		t.Errorf("Run() warnings = %v, want a cancellation warning", res.Warnings)
	}

	var completed, skipped int
	var sum float64
	for _, s := range res.Segments {
		if s.AnnualKWh == nil {
			skipped++
			continue
		}
		completed++
		sum += *s.AnnualKWh
	}
	if completed == 0 {
		t.Error("cancellation discarded every completed lookup")
	}
	if skipped == 0 {
		t.Error("cancellation mid-run left no segment undispatched")
	}
	if res.TotalProductionKWh == nil {
		t.Fatal("Run() left total production nil after cancellation")
	}
	if math.Abs(*res.TotalProductionKWh-sum) > 1e-9 {
		t.Errorf("total production = %v, want %v covering completed lookups only",
			*res.TotalProductionKWh, sum)
	}
}
