package ice

import (
	"context"
	"testing"
)

func tilePixels() []PixelSeries {
	return []PixelSeries{
		{Row: 0, Col: 0, Series: Series{obs(50, Ice), obs(90, Ice), obs(100, Water), obs(105, Water)}},
		{Row: 0, Col: 1, Series: Series{obs(50, Water), obs(90, Ice), obs(100, Water), obs(105, Water)}},
		{Row: 1, Col: 0, Series: Series{obs(100, Ice)}},
		{Row: 1, Col: 1, Series: Series{}},
	}
}

func TestProcessTile(t *testing.T) {
	raster, err := ProcessTile(context.Background(), tilePixels(), TileParams{
		Pixel:  PixelParams{Year: 2018},
		Width:  2,
		Height: 2,
	})
	if err != nil {
		t.Fatalf("ProcessTile: %v", err)
	}

	// pixel (0,0): clean detection
	i := raster.Idx(0, 0)
	if !raster.DateMask[i] || raster.Date[i] != 100 || raster.Gap[i] != 10 {
		t.Fatalf("pixel (0,0): date=%d gap=%d mask=%v", raster.Date[i], raster.Gap[i], raster.DateMask[i])
	}
	// pixel (0,1): first observation water, masked but counted
	i = raster.Idx(0, 1)
	if raster.DateMask[i] {
		t.Fatal("pixel (0,1) must be masked")
	}
	if raster.NObs[i] != 4 {
		t.Fatalf("pixel (0,1): nObs=%d, want 4", raster.NObs[i])
	}
	// pixel (1,0): insufficient data, masked, one observation
	i = raster.Idx(1, 0)
	if raster.DateMask[i] || raster.NObs[i] != 1 {
		t.Fatalf("pixel (1,0): mask=%v nObs=%d", raster.DateMask[i], raster.NObs[i])
	}
	// pixel (1,1): empty series does not abort siblings
	i = raster.Idx(1, 1)
	if raster.DateMask[i] || raster.NObs[i] != 0 {
		t.Fatalf("pixel (1,1): mask=%v nObs=%d", raster.DateMask[i], raster.NObs[i])
	}

	if got := raster.DetectedCount(); got != 1 {
		t.Fatalf("DetectedCount = %d, want 1", got)
	}
}

func TestProcessTileParallelDeterministic(t *testing.T) {
	// a larger grid with many workers and a tiny chunk size must give
	// the same result as a serial run
	pixels := make([]PixelSeries, 0, 64)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			shift := float64(row*8 + col)
			pixels = append(pixels, PixelSeries{Row: row, Col: col, Series: Series{
				obs(50, Ice), obs(90+shift, Ice), obs(100+shift, Water), obs(110+shift, Water),
			}})
		}
	}

	serial, err := ProcessTile(context.Background(), pixels, TileParams{
		Pixel: PixelParams{Year: 2018}, Width: 8, Height: 8, Workers: 1,
	})
	if err != nil {
		t.Fatalf("serial run: %v", err)
	}
	parallel, err := ProcessTile(context.Background(), pixels, TileParams{
		Pixel: PixelParams{Year: 2018}, Width: 8, Height: 8, Workers: 8, ChunkSize: 3,
	})
	if err != nil {
		t.Fatalf("parallel run: %v", err)
	}

	for i := range serial.Date {
		if serial.Date[i] != parallel.Date[i] || serial.DateMask[i] != parallel.DateMask[i] ||
			serial.NObs[i] != parallel.NObs[i] || serial.Gap[i] != parallel.Gap[i] {
			t.Fatalf("pixel %d differs between serial and parallel runs", i)
		}
	}
}

func TestProcessTileOutOfBounds(t *testing.T) {
	_, err := ProcessTile(context.Background(), []PixelSeries{{Row: 5, Col: 0}}, TileParams{
		Pixel: PixelParams{Year: 2018}, Width: 2, Height: 2,
	})
	if err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestProcessTileBadGeometry(t *testing.T) {
	_, err := ProcessTile(context.Background(), nil, TileParams{Pixel: PixelParams{Year: 2018}})
	if err == nil {
		t.Fatal("expected geometry error")
	}
}

func TestProcessTileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pixels := make([]PixelSeries, 4096)
	for i := range pixels {
		pixels[i] = PixelSeries{Row: i / 64, Col: i % 64, Series: Series{obs(50, Ice)}}
	}
	_, err := ProcessTile(ctx, pixels, TileParams{
		Pixel: PixelParams{Year: 2018}, Width: 64, Height: 64, Workers: 1, ChunkSize: 1,
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
