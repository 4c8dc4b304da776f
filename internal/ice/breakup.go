package ice

import (
	"math"

	"github.com/openice-data/breakup.report/internal/units"
)

// BreakupResult is the final per-pixel record for one (tile, year)
// analysis. BreakupDateDOY and BreakupGapDays carry values only when
// Detected is true; R2Percent only when R2Valid is true. The
// observation count is reported regardless of detection success.
type BreakupResult struct {
	Detected       bool
	BreakupDateDOY uint16
	BreakupGapDays uint16

	R2Valid   bool
	R2Percent uint16

	ObservationCount uint16
	Year             int
}

// PixelParams configures the per-pixel estimation pipeline.
type PixelParams struct {
	Year int

	// ApplyRobustFilter enables the logistic temporal filter. When
	// false the filter is skipped entirely and R2 is reported missing.
	ApplyRobustFilter bool

	// AugmentDummyWater injects synthetic water anchors before the
	// filter runs. It has no effect when the filter is disabled.
	AugmentDummyWater bool

	// ResidualCutoff for the temporal filter; zero means the default
	// of 0.85.
	ResidualCutoff float64
}

// DefaultPixelParams returns the production defaults: robust filter and
// dummy augmentation on, standard cutoff.
func DefaultPixelParams(year int) PixelParams {
	return PixelParams{
		Year:              year,
		ApplyRobustFilter: true,
		AugmentDummyWater: true,
		ResidualCutoff:    DefaultResidualCutoff,
	}
}

// EstimatePixel runs the full per-pixel pipeline: dedup, optional dummy
// augmentation, optional robust temporal filter, sequence detection,
// and result assembly. The breakup date is the first observed open
// water (t1); the gap is the elapsed days between last ice (t2) and
// first water. Every failure mode is local to the pixel: insufficient
// data or a degenerate fit yields missing fields, never an error.
func EstimatePixel(s Series, p PixelParams) BreakupResult {
	res := BreakupResult{Year: p.Year}

	series := s.Dedup()
	series.SortAscending()

	var fit Fit
	if p.ApplyRobustFilter {
		if p.AugmentDummyWater {
			series = Augment(series, p.Year)
		}
		before := series.CountPresent()
		series, fit = ApplyTemporalFilter(series, p.Year, p.ResidualCutoff)
		metricObservationsFiltered.Add(float64(before - series.CountPresent()))
	}

	// Count survivors over the full window: real, non-dummy, present.
	res.ObservationCount = clampUint16(series.CountReal())

	if fit.Valid && !math.IsNaN(fit.R2) && !math.IsInf(fit.R2, 0) {
		res.R2Valid = true
		res.R2Percent = clampUint16(int(math.Round(fit.R2 * 100)))
	}

	det := DetectBreakup(series, float64(units.WindowStartDOY(p.Year)))
	metricPixelsProcessed.Inc()
	if !det.Detected {
		return res
	}

	metricBreakupsDetected.Inc()
	res.Detected = true
	res.BreakupDateDOY = clampUint16(int(math.Round(det.T1)))
	res.BreakupGapDays = clampUint16(int(math.Round(det.T1 - det.T2)))
	return res
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
