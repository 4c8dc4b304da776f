// Package monitor renders diagnostic summaries of breakup runs: an
// HTML report of the output raster and per-pixel logistic fit plots.
package monitor

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/openice-data/breakup.report/internal/ice"
)

// histogram bucket width in days for the breakup date chart
const dateBucketDays = 5

// RenderTileReport writes an HTML summary of a run's raster: the
// distribution of breakup dates across detected pixels and the
// distribution of filter R2 values.
func RenderTileReport(w io.Writer, tile string, raster *ice.BreakupRaster) error {
	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("breakup %s %d", tile, raster.Year))

	page.AddCharts(
		breakupDateHistogram(tile, raster),
		r2Histogram(raster),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render tile report: %w", err)
	}
	return nil
}

// WriteTileReport renders the report to a file.
func WriteTileReport(path, tile string, raster *ice.BreakupRaster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	return RenderTileReport(f, tile, raster)
}

func breakupDateHistogram(tile string, raster *ice.BreakupRaster) *charts.Bar {
	// bucket detected dates into fixed-width day-of-year bins
	counts := map[int]int{}
	minBucket, maxBucket := -1, -1
	for i, m := range raster.DateMask {
		if !m {
			continue
		}
		b := int(raster.Date[i]) / dateBucketDays
		counts[b]++
		if minBucket < 0 || b < minBucket {
			minBucket = b
		}
		if b > maxBucket {
			maxBucket = b
		}
	}

	var labels []string
	var values []opts.BarData
	for b := minBucket; b >= 0 && b <= maxBucket; b++ {
		labels = append(labels, fmt.Sprintf("%d", b*dateBucketDays))
		values = append(values, opts.BarData{Value: counts[b]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Breakup date distribution",
			Subtitle: fmt.Sprintf("tile=%s year=%d detected=%d of %d", tile, raster.Year, raster.DetectedCount(), len(raster.Date)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "day of year"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pixels"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("pixels", values)
	return bar
}

func r2Histogram(raster *ice.BreakupRaster) *charts.Bar {
	// 10-point R2 buckets, clamping the occasional >100% fit into the
	// top bucket
	var counts [11]int
	total := 0
	for i, m := range raster.R2Mask {
		if !m {
			continue
		}
		b := int(raster.R2[i]) / 10
		if b > 10 {
			b = 10
		}
		counts[b]++
		total++
	}

	labels := make([]string, len(counts))
	values := make([]opts.BarData, len(counts))
	for b := range counts {
		labels[b] = fmt.Sprintf("%d", b*10)
		values[b] = opts.BarData{Value: counts[b]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Temporal filter R2",
			Subtitle: fmt.Sprintf("%d pixels with a fit", total),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "R2 (%)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pixels"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("pixels", values)
	return bar
}
