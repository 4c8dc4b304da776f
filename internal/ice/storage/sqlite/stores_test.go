package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openice-data/breakup.report/internal/db"
	"github.com/openice-data/breakup.report/internal/ice"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, d.MigrateUp())
	t.Cleanup(func() { d.Close() })
	return d
}

func classPtr(c ice.Class) *ice.Class { return &c }

func TestObservationRoundTrip(t *testing.T) {
	d := openTestDB(t)
	store := NewObservationStore(d.DB)

	records := []ObservationRecord{
		{Tile: "yellowknife", Year: 2018, Row: 0, Col: 0, TimeDOY: 50, Class: classPtr(ice.Ice), Sensor: "L8"},
		{Tile: "yellowknife", Year: 2018, Row: 0, Col: 0, TimeDOY: 120, Class: nil, Sensor: "S2/18WXS"},
		{Tile: "yellowknife", Year: 2018, Row: 0, Col: 0, TimeDOY: 150, Class: classPtr(ice.Water), Sensor: "L7"},
		{Tile: "yellowknife", Year: 2018, Row: 3, Col: 7, TimeDOY: 60, Class: classPtr(ice.Ice), Sensor: "L8"},
		{Tile: "yellowknife", Year: 2019, Row: 0, Col: 0, TimeDOY: 55, Class: classPtr(ice.Ice), Sensor: "L8"},
	}
	require.NoError(t, store.InsertBatch(records))

	pixels, err := store.LoadTile("yellowknife", 2018)
	require.NoError(t, err)
	require.Len(t, pixels, 2)

	var first ice.PixelSeries
	for _, p := range pixels {
		if p.Row == 0 && p.Col == 0 {
			first = p
		}
	}
	require.Len(t, first.Series, 3)

	// the no-data pass is carried as a masked observation
	assert.Equal(t, 2, first.Series.CountReal())
	for _, o := range first.Series {
		if o.TimeDOY == 120 {
			assert.False(t, o.Present)
		}
	}
}

func TestLoadTileEmpty(t *testing.T) {
	d := openTestDB(t)
	store := NewObservationStore(d.DB)
	pixels, err := store.LoadTile("nowhere", 2018)
	require.NoError(t, err)
	assert.Empty(t, pixels)
}

func TestRunRoundTrip(t *testing.T) {
	d := openTestDB(t)
	store := NewRunStore(d.DB)

	run := &AnalysisRun{
		RunID:          NewRunID(),
		Tile:           "yellowknife",
		Year:           2018,
		Width:          4,
		Height:         4,
		RobustFilter:   true,
		DummyWater:     true,
		ResidualCutoff: 0.85,
		Workers:        4,
		PixelCount:     16,
		DetectedCount:  9,
	}
	require.NoError(t, store.InsertRun(run))

	got, err := store.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Tile, got.Tile)
	assert.Equal(t, run.Year, got.Year)
	assert.True(t, got.RobustFilter)
	assert.True(t, got.DummyWater)
	assert.Equal(t, 0.85, got.ResidualCutoff)
	assert.Equal(t, 9, got.DetectedCount)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestListRuns(t *testing.T) {
	d := openTestDB(t)
	store := NewRunStore(d.DB)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.InsertRun(&AnalysisRun{
			RunID: NewRunID(), Tile: "yellowknife", Year: 2018 + i,
			Width: 1, Height: 1, RobustFilter: true,
			ResidualCutoff: 0.85, Workers: 1, PixelCount: 1,
		}))
	}
	require.NoError(t, store.InsertRun(&AnalysisRun{
		RunID: NewRunID(), Tile: "great-slave", Year: 2018,
		Width: 1, Height: 1, ResidualCutoff: 0.85, Workers: 1,
	}))

	runs, err := store.ListRuns("yellowknife", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	for _, r := range runs {
		assert.Equal(t, "yellowknife", r.Tile)
		assert.True(t, r.RobustFilter)
		assert.Equal(t, 0.85, r.ResidualCutoff)
		assert.Equal(t, 1, r.PixelCount)
		assert.False(t, r.CreatedAt.IsZero())
	}
}

// The pool is capped at one connection, so listing must not issue a
// second query while its cursor is open. A single stored run is enough
// to park the old per-row lookup forever; the deadline guards against
// a regression hanging the suite.
func TestListRunsSingleConnection(t *testing.T) {
	d := openTestDB(t)
	store := NewRunStore(d.DB)
	require.NoError(t, store.InsertRun(&AnalysisRun{
		RunID: NewRunID(), Tile: "yellowknife", Year: 2018,
		Width: 1, Height: 1, ResidualCutoff: 0.85, Workers: 1,
	}))

	done := make(chan error, 1)
	go func() {
		runs, err := store.ListRuns("yellowknife", 0)
		if err == nil && len(runs) != 1 {
			err = fmt.Errorf("listed %d runs, want 1", len(runs))
		}
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ListRuns blocked on the single pooled connection")
	}
}

func TestRasterRoundTrip(t *testing.T) {
	d := openTestDB(t)
	store := NewRunStore(d.DB)

	run := &AnalysisRun{
		RunID: NewRunID(), Tile: "yellowknife", Year: 2018,
		Width: 2, Height: 2, ResidualCutoff: 0.85, Workers: 1,
	}
	require.NoError(t, store.InsertRun(run))

	raster := ice.NewBreakupRaster(2, 2, 2018)
	raster.SetPixel(0, 0, ice.BreakupResult{
		Detected: true, BreakupDateDOY: 140, BreakupGapDays: 12,
		R2Valid: true, R2Percent: 93, ObservationCount: 21, Year: 2018,
	})
	raster.SetPixel(1, 1, ice.BreakupResult{ObservationCount: 3, Year: 2018})
	require.NoError(t, store.SaveRaster(run.RunID, raster))

	got, err := store.LoadRaster(run.RunID)
	require.NoError(t, err)

	i := got.Idx(0, 0)
	assert.True(t, got.DateMask[i])
	assert.Equal(t, uint16(140), got.Date[i])
	assert.Equal(t, uint16(12), got.Gap[i])
	assert.True(t, got.R2Mask[i])
	assert.Equal(t, uint16(93), got.R2[i])
	assert.Equal(t, uint16(21), got.NObs[i])

	// the undetected pixel stays masked with its count intact
	i = got.Idx(1, 1)
	assert.False(t, got.DateMask[i])
	assert.False(t, got.R2Mask[i])
	assert.Equal(t, uint16(3), got.NObs[i])
}
