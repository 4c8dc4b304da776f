package monitor

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/openice-data/breakup.report/internal/ice"
	"github.com/openice-data/breakup.report/internal/units"
)

// PlotPixelFit renders one pixel's observations and its fitted
// logistic curve to a PNG, for eyeballing why the filter kept or
// dropped specific passes. Surviving observations are drawn dark,
// filtered ones red, dummies hollow.
func PlotPixelFit(path string, s ice.Series, fit ice.Fit, year int) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("logistic fit, year %d", year)
	p.X.Label.Text = "day of year"
	p.Y.Label.Text = "ice probability"
	p.Y.Min, p.Y.Max = -0.05, 1.05

	kept := plotter.XYs{}
	dropped := plotter.XYs{}
	dummies := plotter.XYs{}
	for _, o := range s {
		pt := plotter.XY{X: o.TimeDOY, Y: float64(o.Class)}
		switch {
		case o.Dummy:
			dummies = append(dummies, pt)
		case o.Present:
			kept = append(kept, pt)
		default:
			dropped = append(dropped, pt)
		}
	}

	if len(kept) > 0 {
		sc, err := plotter.NewScatter(kept)
		if err != nil {
			return fmt.Errorf("kept scatter: %w", err)
		}
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
		p.Legend.Add("kept", sc)
	}
	if len(dropped) > 0 {
		sc, err := plotter.NewScatter(dropped)
		if err != nil {
			return fmt.Errorf("dropped scatter: %w", err)
		}
		sc.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
		p.Legend.Add("filtered", sc)
	}
	if len(dummies) > 0 {
		sc, err := plotter.NewScatter(dummies)
		if err != nil {
			return fmt.Errorf("dummy scatter: %w", err)
		}
		sc.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add("dummy", sc)
	}

	if fit.Valid {
		curve := plotter.NewFunction(func(doy float64) float64 {
			return fit.Prob(units.FracYear(year, doy))
		})
		curve.Samples = 200
		curve.Color = color.RGBA{G: 120, A: 255}
		p.Add(curve)
		p.Legend.Add("fitted", curve)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save fit plot %s: %w", path, err)
	}
	return nil
}
