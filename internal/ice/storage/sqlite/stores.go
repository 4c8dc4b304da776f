// Package sqlite persists observations, analysis runs, and breakup
// rasters in the breakup-report database.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openice-data/breakup.report/internal/ice"
)

// ObservationRecord is one classified pass for one pixel as stored in
// the ice_observations table. A nil Class marks a no-data pass.
type ObservationRecord struct {
	Tile        string
	Year        int
	Row, Col    int
	TimeDOY     float64
	Class       *ice.Class
	Sensor      string
	GeneratedAt int64
}

// AnalysisRun records one (tile, year) detection run with its
// parameters for reproducibility.
type AnalysisRun struct {
	RunID          string
	Tile           string
	Year           int
	Width, Height  int
	RobustFilter   bool
	DummyWater     bool
	ResidualCutoff float64
	Workers        int
	PixelCount     int
	DetectedCount  int
	CreatedAt      time.Time
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// ObservationStore manages the classified observation inventory.
type ObservationStore struct {
	db *sql.DB
}

// NewObservationStore creates an ObservationStore backed by the given
// database.
func NewObservationStore(db *sql.DB) *ObservationStore {
	return &ObservationStore{db: db}
}

// InsertBatch stores a batch of observation records in one
// transaction.
func (s *ObservationStore) InsertBatch(records []ObservationRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin observation batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ice_observations
			(tile, year, pixel_row, pixel_col, time_doy, class, sensor, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var class interface{}
		if r.Class != nil {
			class = int(*r.Class)
		}
		if _, err := stmt.Exec(r.Tile, r.Year, r.Row, r.Col, r.TimeDOY, class, r.Sensor, r.GeneratedAt); err != nil {
			return fmt.Errorf("insert observation (%d,%d) doy %v: %w", r.Row, r.Col, r.TimeDOY, err)
		}
	}
	return tx.Commit()
}

// LoadTile returns the per-pixel observation series for one (tile,
// year), grouped by pixel coordinate. No-data rows become masked
// observations so chronology is preserved.
func (s *ObservationStore) LoadTile(tile string, year int) ([]ice.PixelSeries, error) {
	rows, err := s.db.Query(`
		SELECT pixel_row, pixel_col, time_doy, class, sensor, generated_at
		FROM ice_observations
		WHERE tile = ? AND year = ?
		ORDER BY pixel_row, pixel_col
	`, tile, year)
	if err != nil {
		return nil, fmt.Errorf("query observations for %s/%d: %w", tile, year, err)
	}
	defer rows.Close()

	var out []ice.PixelSeries
	cur := -1 // index into out for the pixel being assembled
	for rows.Next() {
		var (
			row, col    int
			doy         float64
			class       sql.NullInt64
			sensor      string
			generatedAt int64
		)
		if err := rows.Scan(&row, &col, &doy, &class, &sensor, &generatedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}

		o := ice.Observation{TimeDOY: doy, Source: sensor, GeneratedAt: generatedAt}
		if class.Valid {
			o.Present = true
			o.Class = ice.Class(class.Int64)
		}

		if cur < 0 || out[cur].Row != row || out[cur].Col != col {
			out = append(out, ice.PixelSeries{Row: row, Col: col})
			cur = len(out) - 1
		}
		out[cur].Series = append(out[cur].Series, o)
	}
	return out, rows.Err()
}

// RunStore manages analysis run records and their raster bands.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun stores a run record.
func (s *RunStore) InsertRun(run *AnalysisRun) error {
	_, err := s.db.Exec(`
		INSERT INTO analysis_runs
			(run_id, tile, year, width, height, robust_filter, dummy_water,
			 residual_cutoff, workers, pixel_count, detected_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Tile, run.Year, run.Width, run.Height,
		boolInt(run.RobustFilter), boolInt(run.DummyWater),
		run.ResidualCutoff, run.Workers, run.PixelCount, run.DetectedCount)
	if err != nil {
		return fmt.Errorf("insert analysis run %s: %w", run.RunID, err)
	}
	return nil
}

// GetRun returns one run by ID.
func (s *RunStore) GetRun(runID string) (*AnalysisRun, error) {
	run := &AnalysisRun{}
	var robust, dummy int
	err := s.db.QueryRow(`
		SELECT run_id, tile, year, width, height, robust_filter, dummy_water,
		       residual_cutoff, workers, pixel_count, detected_count, created_at
		FROM analysis_runs WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.Tile, &run.Year, &run.Width, &run.Height,
		&robust, &dummy, &run.ResidualCutoff, &run.Workers,
		&run.PixelCount, &run.DetectedCount, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get analysis run %s: %w", runID, err)
	}
	run.RobustFilter = robust != 0
	run.DummyWater = dummy != 0
	return run, nil
}

// ListRuns returns runs for a tile in reverse chronological order.
// Every column is selected up front: the pool is capped at one
// connection, so a nested query while this cursor is open would wait
// on itself.
func (s *RunStore) ListRuns(tile string, limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, tile, year, width, height, robust_filter, dummy_water,
		       residual_cutoff, workers, pixel_count, detected_count, created_at
		FROM analysis_runs
		WHERE tile = ? ORDER BY created_at DESC LIMIT ?
	`, tile, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", tile, err)
	}
	defer rows.Close()

	var out []*AnalysisRun
	for rows.Next() {
		run := &AnalysisRun{}
		var robust, dummy int
		if err := rows.Scan(&run.RunID, &run.Tile, &run.Year, &run.Width, &run.Height,
			&robust, &dummy, &run.ResidualCutoff, &run.Workers,
			&run.PixelCount, &run.DetectedCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.RobustFilter = robust != 0
		run.DummyWater = dummy != 0
		out = append(out, run)
	}
	return out, rows.Err()
}

// SaveRaster stores every pixel of the raster under the given run in
// one transaction. Masked bands are stored as NULL.
func (s *RunStore) SaveRaster(runID string, r *ice.BreakupRaster) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin raster save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO breakup_pixels
			(run_id, pixel_row, pixel_col, breakup_date, r2, n_obs, breakup_gap)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare raster insert: %w", err)
	}
	defer stmt.Close()

	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			i := r.Idx(row, col)
			var date, gap, r2 interface{}
			if r.DateMask[i] {
				date = int(r.Date[i])
				gap = int(r.Gap[i])
			}
			if r.R2Mask[i] {
				r2 = int(r.R2[i])
			}
			if _, err := stmt.Exec(runID, row, col, date, r2, int(r.NObs[i]), gap); err != nil {
				return fmt.Errorf("insert pixel (%d,%d): %w", row, col, err)
			}
		}
	}
	return tx.Commit()
}

// LoadRaster reassembles a run's raster from the pixel rows.
func (s *RunStore) LoadRaster(runID string) (*ice.BreakupRaster, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	raster := ice.NewBreakupRaster(run.Width, run.Height, run.Year)

	rows, err := s.db.Query(`
		SELECT pixel_row, pixel_col, breakup_date, r2, n_obs, breakup_gap
		FROM breakup_pixels WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query raster for run %s: %w", runID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row, col  int
			date, gap sql.NullInt64
			r2        sql.NullInt64
			nObs      int
		)
		if err := rows.Scan(&row, &col, &date, &r2, &nObs, &gap); err != nil {
			return nil, fmt.Errorf("scan raster pixel: %w", err)
		}
		if !raster.InBounds(row, col) {
			return nil, fmt.Errorf("stored pixel (%d,%d) outside %dx%d raster", row, col, run.Width, run.Height)
		}
		i := raster.Idx(row, col)
		raster.NObs[i] = uint16(nObs)
		if date.Valid {
			raster.Date[i] = uint16(date.Int64)
			raster.Gap[i] = uint16(gap.Int64)
			raster.DateMask[i] = true
		}
		if r2.Valid {
			raster.R2[i] = uint16(r2.Int64)
			raster.R2Mask[i] = true
		}
	}
	return raster, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
