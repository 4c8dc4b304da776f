package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openice-data/breakup.report/internal/config"
	"github.com/openice-data/breakup.report/internal/db"
	"github.com/openice-data/breakup.report/internal/ice"
	"github.com/openice-data/breakup.report/internal/ice/classify"
	"github.com/openice-data/breakup.report/internal/ice/monitor"
	"github.com/openice-data/breakup.report/internal/ice/storage/sqlite"
	"github.com/openice-data/breakup.report/internal/units"
)

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "Database file")
	down := fs.Bool("down", false, "Roll back the most recent migration")
	status := fs.Bool("status", false, "Print the schema version and exit")
	fs.Parse(args)

	database, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch {
	case *status:
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			return err
		}
		log.Printf("schema version %d (dirty=%v)", version, dirty)
		return nil
	case *down:
		return database.MigrateDown()
	default:
		return database.MigrateUp()
	}
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "Database file")
	tile := fs.String("tile", "", "Tile name the observations belong to")
	year := fs.Int("year", 0, "Observation year")
	csvPath := fs.String("csv", "-", "CSV file to import, - for stdin")
	fs.Parse(args)

	if *tile == "" {
		return fmt.Errorf("import requires -tile")
	}
	if *year < config.MinYear || *year > config.MaxYear {
		return fmt.Errorf("year %d outside supported range [%d, %d]", *year, config.MinYear, config.MaxYear)
	}

	in := os.Stdin
	if *csvPath != "-" {
		f, err := os.Open(*csvPath)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		in = f
	}

	records, skipped, err := parseObservationCSV(in, *tile, *year)
	if err != nil {
		return err
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		return err
	}

	store := sqlite.NewObservationStore(database.DB)
	if err := store.InsertBatch(records); err != nil {
		return err
	}
	log.Printf("imported %d observations for %s/%d (%d outside the analysis window skipped)",
		len(records), *tile, *year, skipped)
	return nil
}

// parseObservationCSV reads observation rows for one tile-year. The
// header decides the mode: a "class" column carries pre-classified
// labels (water/ice/cloud/nodata), otherwise blue/green/swir1/swir2
// band columns are classified here with the sensor's decision tree.
// Required columns: row, col, date, sensor. Dates are YYYY-MM-DD or a
// numeric day of year. Cloud labels are stored as no-data rows, and
// observations outside the February-October analysis window are
// dropped.
func parseObservationCSV(in io.Reader, tile string, year int) ([]sqlite.ObservationRecord, int, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"row", "col", "date", "sensor"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("csv missing required column %q", required)
		}
	}
	_, hasClass := col["class"]
	if !hasClass {
		for _, required := range []string{"blue", "green", "swir1", "swir2"} {
			if _, ok := col[required]; !ok {
				return nil, 0, fmt.Errorf("csv needs either a class column or band columns (missing %q)", required)
			}
		}
	}

	now := time.Now().Unix()
	var records []sqlite.ObservationRecord
	skipped := 0
	for line := 2; ; line++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("csv line %d: %w", line, err)
		}

		get := func(name string) string { return strings.TrimSpace(fields[col[name]]) }

		row, err := strconv.Atoi(get("row"))
		if err != nil {
			return nil, 0, fmt.Errorf("csv line %d: bad row: %w", line, err)
		}
		pixCol, err := strconv.Atoi(get("col"))
		if err != nil {
			return nil, 0, fmt.Errorf("csv line %d: bad col: %w", line, err)
		}
		doy, err := parseObservationDate(get("date"), year)
		if err != nil {
			return nil, 0, fmt.Errorf("csv line %d: %w", line, err)
		}
		sensor := get("sensor")

		if !units.InWindow(year, doy) {
			skipped++
			continue
		}

		var label classify.Label
		masked := false
		if hasClass {
			label, masked, err = parseLabel(get("class"))
			if err != nil {
				return nil, 0, fmt.Errorf("csv line %d: %w", line, err)
			}
		} else {
			label, err = classifyBands(sensor, get, line)
			if err != nil {
				return nil, 0, err
			}
		}

		rec := sqlite.ObservationRecord{
			Tile: tile, Year: year, Row: row, Col: pixCol,
			TimeDOY: doy, Sensor: sensor, GeneratedAt: now,
		}
		if gi, ok := col["generated_at"]; ok && strings.TrimSpace(fields[gi]) != "" {
			ga, err := strconv.ParseInt(strings.TrimSpace(fields[gi]), 10, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("csv line %d: bad generated_at: %w", line, err)
			}
			rec.GeneratedAt = ga
		}
		// Cloudy passes keep their row so chronology survives, but with
		// no class.
		if !masked && label != classify.LabelCloud {
			c := ice.Class(label)
			rec.Class = &c
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func parseObservationDate(s string, year int) (float64, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if t.Year() != year {
			return 0, fmt.Errorf("date %s outside year %d", s, year)
		}
		return float64(units.DayOfYear(t)), nil
	}
	doy, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad date %q (want YYYY-MM-DD or day of year)", s)
	}
	return doy, nil
}

func parseLabel(s string) (label classify.Label, masked bool, err error) {
	switch strings.ToLower(s) {
	case "water":
		return classify.LabelWater, false, nil
	case "ice":
		return classify.LabelIce, false, nil
	case "cloud":
		return classify.LabelCloud, false, nil
	case "", "nodata":
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("unknown class %q", s)
	}
}

func classifyBands(sensor string, get func(string) string, line int) (classify.Label, error) {
	classifier := classify.ForSensor(sensor)
	if classifier == nil {
		return 0, fmt.Errorf("csv line %d: unknown sensor %q", line, sensor)
	}
	band := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(get(name), 64)
		if err != nil {
			return 0, fmt.Errorf("csv line %d: bad %s band: %w", line, name, err)
		}
		return v, nil
	}

	blue, err := band("blue")
	if err != nil {
		return 0, err
	}
	var feature float64
	if sensor == "L7" {
		if feature, err = band("swir2"); err != nil {
			return 0, err
		}
	} else {
		green, err := band("green")
		if err != nil {
			return 0, err
		}
		swir1, err := band("swir1")
		if err != nil {
			return 0, err
		}
		feature = classify.NDSI(green, swir1)
	}
	return classifier(blue, feature), nil
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "Database file")
	tile := fs.String("tile", "", "Tile to analyze")
	year := fs.Int("year", 0, "Breakup year to analyze")
	configPath := fs.String("config", "", "Optional YAML run configuration")
	width := fs.Int("width", 0, "Raster width in pixels, 0 to infer from observations")
	height := fs.Int("height", 0, "Raster height in pixels, 0 to infer from observations")
	fs.Parse(args)

	if *tile == "" {
		return fmt.Errorf("detect requires -tile")
	}

	cfg, err := config.Load(*configPath, *year)
	if err != nil {
		return err
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.MigrateUp(); err != nil {
		return err
	}

	pixels, err := sqlite.NewObservationStore(database.DB).LoadTile(*tile, cfg.Year)
	if err != nil {
		return err
	}
	if len(pixels) == 0 {
		return fmt.Errorf("no observations stored for %s/%d", *tile, cfg.Year)
	}

	w, h := *width, *height
	if w <= 0 || h <= 0 {
		for _, px := range pixels {
			if px.Col >= w {
				w = px.Col + 1
			}
			if px.Row >= h {
				h = px.Row + 1
			}
		}
		log.Printf("inferred raster size %dx%d from observations", w, h)
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
		log.Printf("serving metrics on %s", cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raster, err := ice.ProcessTile(ctx, pixels, ice.TileParams{
		Pixel:   cfg.PixelParams(),
		Width:   w,
		Height:  h,
		Workers: cfg.Workers,
	})
	if err != nil {
		return err
	}

	runs := sqlite.NewRunStore(database.DB)
	run := &sqlite.AnalysisRun{
		RunID:          sqlite.NewRunID(),
		Tile:           *tile,
		Year:           cfg.Year,
		Width:          w,
		Height:         h,
		RobustFilter:   cfg.ApplyRobustFilter,
		DummyWater:     cfg.AugmentDummyWater,
		ResidualCutoff: cfg.ResidualCutoff,
		Workers:        cfg.Workers,
		PixelCount:     len(pixels),
		DetectedCount:  raster.DetectedCount(),
	}
	if err := runs.InsertRun(run); err != nil {
		return err
	}
	if err := runs.SaveRaster(run.RunID, raster); err != nil {
		return err
	}

	log.Printf("run %s: %d/%d pixels with a breakup date", run.RunID, run.DetectedCount, run.PixelCount)
	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBFile, "Database file")
	runID := fs.String("run", "", "Run to report on; empty with -tile lists recent runs")
	tile := fs.String("tile", "", "Tile to list runs for")
	out := fs.String("out", "breakup_report.html", "Output HTML file")
	plotPixel := fs.String("plot-pixel", "", "Also plot one pixel's logistic fit, as row,col")
	plotOut := fs.String("plot-out", "breakup_fit.png", "Output PNG for -plot-pixel")
	fs.Parse(args)

	database, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	runs := sqlite.NewRunStore(database.DB)

	if *runID == "" {
		if *tile == "" {
			return fmt.Errorf("report requires -run, or -tile to list runs")
		}
		list, err := runs.ListRuns(*tile, 20)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			log.Printf("no runs recorded for %s", *tile)
			return nil
		}
		for _, run := range list {
			log.Printf("%s  year=%d  %d/%d detected  %s",
				run.RunID, run.Year, run.DetectedCount, run.PixelCount,
				run.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}

	run, err := runs.GetRun(*runID)
	if err != nil {
		return err
	}
	raster, err := runs.LoadRaster(*runID)
	if err != nil {
		return err
	}
	if err := monitor.WriteTileReport(*out, run.Tile, raster); err != nil {
		return err
	}
	log.Printf("wrote %s for run %s (%s/%d)", *out, run.RunID, run.Tile, run.Year)

	if *plotPixel != "" {
		store := sqlite.NewObservationStore(database.DB)
		if err := plotPixelFit(store, run, *plotPixel, *plotOut); err != nil {
			return err
		}
		log.Printf("wrote %s", *plotOut)
	}
	return nil
}

// plotPixelFit re-runs one pixel's augmentation and filter with the
// run's recorded parameters and renders the diagnostic fit plot.
func plotPixelFit(store *sqlite.ObservationStore, run *sqlite.AnalysisRun, pixel, out string) error {
	var row, col int
	if _, err := fmt.Sscanf(pixel, "%d,%d", &row, &col); err != nil {
		return fmt.Errorf("bad -plot-pixel %q (want row,col): %w", pixel, err)
	}

	pixels, err := store.LoadTile(run.Tile, run.Year)
	if err != nil {
		return err
	}
	for _, px := range pixels {
		if px.Row != row || px.Col != col {
			continue
		}
		series, fit := runFitSeries(px.Series, run)
		return monitor.PlotPixelFit(out, series, fit, run.Year)
	}
	return fmt.Errorf("no observations for pixel (%d,%d) in %s/%d", row, col, run.Tile, run.Year)
}

// runFitSeries replays the run's recorded pipeline for one pixel. A run
// that skipped the robust filter gets its series back unfiltered with
// no fit, so the plot shows what the run actually saw.
func runFitSeries(s ice.Series, run *sqlite.AnalysisRun) (ice.Series, ice.Fit) {
	series := s.Dedup()
	series.SortAscending()
	if run.DummyWater {
		series = ice.Augment(series, run.Year)
	}
	if !run.RobustFilter {
		return series, ice.Fit{}
	}
	return ice.ApplyTemporalFilter(series, run.Year, run.ResidualCutoff)
}
