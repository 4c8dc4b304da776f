package ice

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/openice-data/breakup.report/internal/units"
)

// Residual cutoff for the temporal filter. The cutoff is deliberately
// high so possible misclassifications during the breakup period are
// kept in case they represent a true succession of changed states
// (ice breaks, then wind shifts ice back over the pixel).
const DefaultResidualCutoff = 0.85

// Remap bounds keeping the logit finite for the binary response.
const (
	remapWater = 0.001
	remapIce   = 0.999
)

// Fit is the per-pixel linearized logistic regression result. Valid is
// false when the pixel had fewer than two present observations, in
// which case the remaining fields are meaningless. R2 may be NaN for
// degenerate (all-ice or all-water) series; callers propagate it as
// missing rather than special-casing.
type Fit struct {
	Intercept float64
	Slope     float64
	R2        float64
	Valid     bool
}

// Prob returns the fitted ice probability at time covariate x:
// exp(b0+b1*x) / (1+exp(b0+b1*x)).
func (f Fit) Prob(x float64) float64 {
	e := math.Exp(f.Intercept + f.Slope*x)
	return e / (1 + e)
}

// remap converts the binary class into the open interval (0,1) so the
// logit is finite for every observation.
func remap(c Class) float64 {
	if c == Ice {
		return remapIce
	}
	return remapWater
}

// FitLogistic fits ln(y/(1-y)) = b0 + b1*x by ordinary least squares
// across every present observation of the series at once, with the
// fractional year as covariate. Dummy observations participate like
// real ones. R2 is computed as SSR/SSTO against the mean of the raw
// binary response over the whole present series, before any residual
// filtering.
func FitLogistic(s Series, year int) Fit {
	xs := make([]float64, 0, len(s))
	logits := make([]float64, 0, len(s))
	ys := make([]float64, 0, len(s))
	for _, o := range s {
		if !o.Present {
			continue
		}
		yt := remap(o.Class)
		xs = append(xs, units.FracYear(year, o.TimeDOY))
		logits = append(logits, math.Log(yt/(1-yt)))
		ys = append(ys, float64(o.Class))
	}
	if len(xs) < 2 {
		return Fit{}
	}

	b0, b1 := stat.LinearRegression(xs, logits, nil, false)
	fit := Fit{Intercept: b0, Slope: b1, Valid: true}

	// R2 = SSR/SSTO with both sums taken against the whole-series mean
	// of the observed response.
	yflat := stat.Mean(ys, nil)
	var ssr, ssto float64
	for i, x := range xs {
		d := fit.Prob(x) - yflat
		ssr += d * d
		e := ys[i] - yflat
		ssto += e * e
	}
	fit.R2 = ssr / ssto // NaN or Inf when the series is degenerate
	return fit
}

// ApplyTemporalFilter fits the logistic regression and masks out
// observations whose residual magnitude exceeds the cutoff. The input
// is not modified; the returned series has likely misclassifications
// (winter water, summer ice) flipped to Present=false. The fit,
// including R2, is computed before any observation is discarded and is
// returned unchanged regardless of how many observations the filter
// drops.
func ApplyTemporalFilter(s Series, year int, cutoff float64) (Series, Fit) {
	if cutoff <= 0 {
		cutoff = DefaultResidualCutoff
	}
	fit := FitLogistic(s, year)
	out := s.Clone()
	if !fit.Valid {
		return out, fit
	}
	for i, o := range out {
		if !o.Present {
			continue
		}
		residual := fit.Prob(units.FracYear(year, o.TimeDOY)) - float64(o.Class)
		if math.Abs(residual) > cutoff {
			out[i].Present = false
		}
	}
	return out, fit
}
