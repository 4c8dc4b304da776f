package ice

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/openice-data/breakup.report/internal/monitoring"
)

// PixelSeries pairs a pixel coordinate with its observation series.
type PixelSeries struct {
	Row, Col int
	Series   Series
}

// TileParams configures a whole-tile run.
type TileParams struct {
	Pixel PixelParams

	// Width and Height of the output raster. Pixels outside the bounds
	// are rejected before processing starts.
	Width, Height int

	// Workers is the number of concurrent pixel workers; zero means
	// GOMAXPROCS.
	Workers int

	// ChunkSize is the number of pixels handed to a worker at a time;
	// zero means 256.
	ChunkSize int
}

// ProcessTile runs the per-pixel pipeline over every pixel of a tile
// and assembles the multi-band breakup raster. Pixels are independent,
// so the work is fanned out across a worker pool in chunks; each worker
// writes only its own pixels' band entries, so no locking is needed
// beyond the chunk feed. Per-pixel failures (insufficient data,
// degenerate fits, no transition) surface as masked pixels and never
// abort siblings. The only error paths are bad geometry and context
// cancellation.
func ProcessTile(ctx context.Context, pixels []PixelSeries, p TileParams) (*BreakupRaster, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", p.Width, p.Height)
	}
	raster := NewBreakupRaster(p.Width, p.Height, p.Pixel.Year)
	for _, px := range pixels {
		if !raster.InBounds(px.Row, px.Col) {
			return nil, fmt.Errorf("pixel (%d,%d) outside %dx%d raster", px.Row, px.Col, p.Width, p.Height)
		}
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 256
	}

	chunks := make(chan []PixelSeries)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				for _, px := range chunk {
					res := EstimatePixel(px.Series, p.Pixel)
					raster.SetPixel(px.Row, px.Col, res)
				}
			}
		}()
	}

	var feedErr error
feed:
	for start := 0; start < len(pixels); start += chunkSize {
		end := start + chunkSize
		if end > len(pixels) {
			end = len(pixels)
		}
		select {
		case chunks <- pixels[start:end]:
		case <-ctx.Done():
			feedErr = ctx.Err()
			break feed
		}
	}
	close(chunks)
	wg.Wait()

	if feedErr != nil {
		return nil, feedErr
	}
	monitoring.Logf("processed %d pixels (%d detected) for year %d",
		len(pixels), raster.DetectedCount(), p.Pixel.Year)
	return raster, nil
}
