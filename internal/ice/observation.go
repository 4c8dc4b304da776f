// Package ice implements per-pixel spring breakup detection from
// classified satellite ice/water time series: robust logistic filtering,
// ice-water-water sequence detection, and per-pixel breakup estimation.
package ice

import "sort"

// Class is the binary ice/water label assigned by the upstream
// classifier. Water is 0 and ice is 1 so the class value doubles as the
// regression response.
type Class uint8

const (
	Water Class = 0
	Ice   Class = 1
)

func (c Class) String() string {
	if c == Ice {
		return "ice"
	}
	return "water"
}

// Observation is one classified satellite pass for one pixel. Present
// is false for masked passes (cloud, out-of-tile, non-water); masked
// observations are carried in the series but excluded from fitting and
// detection. Dummy marks synthetic water anchors injected by Augment.
type Observation struct {
	TimeDOY float64 // fractional day of year of the pass
	Class   Class
	Present bool
	Dummy   bool

	// Source identifies the sensor scene for duplicate removal, e.g.
	// "S2/18WXS". GeneratedAt orders duplicate scenes so the most
	// recently generated one wins.
	Source      string
	GeneratedAt int64
}

// Series is the per-pixel observation sequence. Insertion order is not
// meaningful; callers must sort explicitly before fitting or scanning.
type Series []Observation

// SortAscending orders the series chronologically. The sort is stable
// so equal timestamps keep their relative order from dedup.
func (s Series) SortAscending() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].TimeDOY < s[j].TimeDOY })
}

// Dedup removes duplicate scenes sharing the same timestamp and source,
// keeping the most recently generated observation. Sentinel-2 tiles can
// be reprocessed upstream, producing two scenes for the same pass.
func (s Series) Dedup() Series {
	type key struct {
		t      float64
		source string
	}
	best := make(map[key]int, len(s))
	out := s[:0:0]
	for _, o := range s {
		k := key{o.TimeDOY, o.Source}
		if i, ok := best[k]; ok {
			if o.GeneratedAt > out[i].GeneratedAt {
				out[i] = o
			}
			continue
		}
		best[k] = len(out)
		out = append(out, o)
	}
	return out
}

// CountReal returns the number of present, non-dummy observations. This
// is the observation count reported per pixel; dummy anchors and masked
// passes never contribute.
func (s Series) CountReal() int {
	n := 0
	for _, o := range s {
		if o.Present && !o.Dummy {
			n++
		}
	}
	return n
}

// CountPresent returns the number of present observations including
// dummies, i.e. the sample size seen by the regression.
func (s Series) CountPresent() int {
	n := 0
	for _, o := range s {
		if o.Present {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the series.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}
