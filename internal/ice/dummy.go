package ice

import (
	"math"

	"github.com/openice-data/breakup.report/internal/units"
)

// Augment appends synthetic water observations to the series, evenly
// spaced between Sept 1 and Oct 1 of the target year. The anchors keep
// the logistic fit descending toward water by season's end even when a
// pixel is dominated by systematic late-season misclassification. The
// number of anchors is roughly 10% of the series size. Dummy
// observations join the regression like real ones but are excluded
// from the reported observation count.
func Augment(s Series, year int) Series {
	n := int(math.Round(float64(len(s)) / 10))
	if n <= 0 {
		return s
	}

	start := float64(units.DummyStartDOY(year))
	end := float64(units.WindowEndDOY(year))
	out := make(Series, len(s), len(s)+n)
	copy(out, s)

	// n timestamps from start to end inclusive; a single anchor lands
	// on the window start.
	step := 0.0
	if n > 1 {
		step = (end - start) / float64(n-1)
	}
	for i := 0; i < n; i++ {
		out = append(out, Observation{
			TimeDOY: start + float64(i)*step,
			Class:   Water,
			Present: true,
			Dummy:   true,
			Source:  "dummy",
		})
	}
	return out
}
