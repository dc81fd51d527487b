package analysis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/roofwatts/internal/log"
	"github.com/chrissnell/roofwatts/internal/yield"
)

// aggregate prices every segment through the estimator and fills the
// production totals and score. Lookups run through a bounded pool, paced
// by a shared rate gate so the aggregate request rate honors the
// configured inter-call delay. Results land by segment index, so one
// failed lookup never disturbs its neighbors. Cancellation is checked
// between lookups; segments never dispatched keep a nil yield and the
// totals cover completed lookups only.
func (a *Analyzer) aggregate(ctx context.Context, res *Result, loc Location) {
	segments := res.Segments
	gate := newRateGate(a.cfg.MinInterCallDelay)
	defer gate.stop()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrentLookups)

	dispatched := 0
	for i := range segments {
		if err := gate.wait(ctx); err != nil {
			w := fmt.Sprintf("analysis cancelled after dispatching %d of %d yield lookups; totals cover completed lookups only",
				dispatched, len(segments))
			log.Warnf("%s", w)
			res.Warnings = append(res.Warnings, w)
			break
		}
		dispatched++

		seg := &segments[i]
		g.Go(func() error {
			kwh, err := a.estimator.EstimateAnnualKWh(gctx, yield.Request{
				Latitude:         loc.Latitude,
				Longitude:        loc.Longitude,
				SystemCapacityKW: seg.AreaM2 * a.cfg.PanelEfficiency,
				TiltDeg:          seg.TiltDeg,
				AzimuthDeg:       seg.AzimuthDeg,
				SystemLossesPct:  a.cfg.SystemLossesPct,
			})
			if err != nil {
				log.Warnf("yield lookup failed for %s: %v", seg.ID, err)
				zero := 0.0
				seg.AnnualKWh = &zero
				seg.Warning = fmt.Sprintf("yield lookup failed: %v", err)
				return nil
			}
			v := round2(kwh)
			seg.AnnualKWh = &v
			log.Debugf("%s: %.2f kWh/yr from %.2f kW at tilt %.1f azimuth %.1f",
				seg.ID, v, seg.CapacityKW, seg.TiltDeg, seg.AzimuthDeg)
			return nil
		})
	}
	g.Wait()

	var production float64
	for _, s := range segments {
		if s.AnnualKWh != nil {
			production += *s.AnnualKWh
		}
	}
	production = round2(production)
	res.TotalProductionKWh = &production
	res.Score = scorePtr(production, res.ConsumptionKWh)
}

// rateGate issues dispatch tokens at most once per interval, shared by
// all workers. The first token is available immediately and no trailing
// delay is spent after the last consumer.
type rateGate struct {
	tokens chan struct{}
	done   chan struct{}
}

func newRateGate(interval time.Duration) *rateGate {
	g := &rateGate{
		tokens: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case g.tokens <- struct{}{}:
			case <-g.done:
				return
			}
			if interval <= 0 {
				continue
			}
			select {
			case <-time.After(interval):
			case <-g.done:
				return
			}
		}
	}()
	return g
}

// wait blocks until a token is available or ctx is done.
func (g *rateGate) wait(ctx context.Context) error {
	select {
	case <-g.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *rateGate) stop() {
	close(g.done)
}
