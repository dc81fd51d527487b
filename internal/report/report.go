// Package report renders analysis results as human-readable text for the
// CLI and for operators reading stored runs.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/pkg/leed"
)

const rule = "======================================================================"
const thinRule = "----------------------------------------------------------------------"

// Render writes a text report for one analysis result.
func Render(w io.Writer, res *analysis.Result) error {
	var b strings.Builder

	title := "ROOFTOP SOLAR ANALYSIS"
	if res.Project != "" {
		title += " — " + res.Project
	}
	fmt.Fprintf(&b, "%s\n  %s\n%s\n", rule, title, rule)

	if !res.OK {
		fmt.Fprintf(&b, "  Analysis failed: %s\n", res.Reason)
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "  Run ID        : %s\n", res.RunID)
	if res.SourceFile != "" {
		fmt.Fprintf(&b, "  Source file   : %s\n", res.SourceFile)
	}
	if res.Location != nil {
		fmt.Fprintf(&b, "  Location      : %.4f, %.4f\n", res.Location.Latitude, res.Location.Longitude)
	} else {
		fmt.Fprintf(&b, "  Location      : unknown (geometry only)\n")
	}
	fmt.Fprintf(&b, "  True north    : %.1f°\n", res.TrueNorthDeg)
	if res.Estimator != "" {
		fmt.Fprintf(&b, "  Estimator     : %s\n", res.Estimator)
	}
	fmt.Fprintf(&b, "  Segments      : %d\n\n", len(res.Segments))

	for _, s := range res.Segments {
		fmt.Fprintf(&b, "  %-12s |  Area: %8.2f m²  |  Tilt: %5.1f°  |  Azimuth: %5.1f°  |  Capacity: %7.2f kW  |  Yield: %s\n",
			s.ID, s.AreaM2, s.TiltDeg, s.AzimuthDeg, s.CapacityKW, yieldColumn(s))
	}

	fmt.Fprintf(&b, "\n%s\n", thinRule)
	fmt.Fprintf(&b, "  Total roof area    : %10.2f m²\n", res.TotalAreaM2)
	fmt.Fprintf(&b, "  Total capacity     : %10.2f kW\n", res.TotalCapacityKW)
	if res.TotalProductionKWh != nil {
		fmt.Fprintf(&b, "  TOTAL PRODUCTION   : %10.2f kWh/yr\n", *res.TotalProductionKWh)
	} else {
		fmt.Fprintf(&b, "  TOTAL PRODUCTION   : n/a (no yield estimates)\n")
	}
	fmt.Fprintf(&b, "%s\n\n", thinRule)

	fmt.Fprintf(&b, "  Consumption benchmark : %.0f kWh/yr\n", res.ConsumptionKWh)
	if res.Score != nil {
		fmt.Fprintf(&b, "  Score                 : %.0f / %.0f × 100 = %.1f%%\n",
			res.ProductionKWh(), res.ConsumptionKWh, *res.Score)
		fmt.Fprintf(&b, "  Rating                : %s\n", leed.Rating(*res.Score))
		credit := "no"
		if leed.MeetsRenewableCredit(*res.Score) {
			credit = "yes"
		}
		fmt.Fprintf(&b, "  Renewable credit      : %s\n", credit)
	} else {
		fmt.Fprintf(&b, "  Score                 : n/a (no yield estimates)\n")
	}

	warnings := collectWarnings(res)
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "\n  Warnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "    - %s\n", w)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func yieldColumn(s analysis.Segment) string {
	if s.AnnualKWh == nil {
		return "       n/a"
	}
	return fmt.Sprintf("%10.2f kWh/yr", *s.AnnualKWh)
}

// collectWarnings merges run-level warnings with per-segment ones so the
// report shows every caveat in one place.
func collectWarnings(res *analysis.Result) []string {
	warnings := append([]string(nil), res.Warnings...)
	for _, s := range res.Segments {
		if s.Warning != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", s.ID, s.Warning))
		}
	}
	return warnings
}
