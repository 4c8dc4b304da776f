package ice

// BreakupRaster is the multi-band output raster for one (tile, year)
// run. Bands are stored as flat row-major slices, one value per pixel,
// with parallel mask slices for the bands that are only defined when a
// breakup was detected (date, gap) or when the filter produced a fit
// (r2). NObs is always defined.
type BreakupRaster struct {
	Width  int
	Height int
	Year   int

	Date []uint16 // breakup day of year
	R2   []uint16 // 0-100
	NObs []uint16
	Gap  []uint16 // days between last ice and first water

	DateMask []bool // true where Date and Gap are valid
	R2Mask   []bool // true where R2 is valid
}

// NewBreakupRaster allocates an all-masked raster of the given size.
func NewBreakupRaster(width, height, year int) *BreakupRaster {
	n := width * height
	return &BreakupRaster{
		Width:    width,
		Height:   height,
		Year:     year,
		Date:     make([]uint16, n),
		R2:       make([]uint16, n),
		NObs:     make([]uint16, n),
		Gap:      make([]uint16, n),
		DateMask: make([]bool, n),
		R2Mask:   make([]bool, n),
	}
}

// Idx maps a (row, col) pixel coordinate to the flat band index.
func (r *BreakupRaster) Idx(row, col int) int {
	return row*r.Width + col
}

// InBounds reports whether the pixel coordinate falls inside the
// raster.
func (r *BreakupRaster) InBounds(row, col int) bool {
	return row >= 0 && row < r.Height && col >= 0 && col < r.Width
}

// SetPixel writes one pixel result into the bands. Detection and fit
// masks follow the result's validity flags; a pixel that failed
// detection stays masked in the date and gap bands but still records
// its observation count.
func (r *BreakupRaster) SetPixel(row, col int, res BreakupResult) {
	i := r.Idx(row, col)
	r.NObs[i] = res.ObservationCount
	if res.R2Valid {
		r.R2[i] = res.R2Percent
		r.R2Mask[i] = true
	}
	if res.Detected {
		r.Date[i] = res.BreakupDateDOY
		r.Gap[i] = res.BreakupGapDays
		r.DateMask[i] = true
	}
}

// DetectedCount returns the number of pixels with a detected breakup.
func (r *BreakupRaster) DetectedCount() int {
	n := 0
	for _, m := range r.DateMask {
		if m {
			n++
		}
	}
	return n
}
