package ice

// Slot is one entry of the three-observation history carried by the
// sequence detector.
type Slot struct {
	Class   Class
	TimeDOY float64
}

// TransitionState is the per-pixel working memory of the sequence scan.
// It starts as all-ice at the window start and shifts once per present
// observation until the ice-water-water pattern is found, at which
// point the state freezes: later observations cannot alter the slots
// or clear Detected.
type TransitionState struct {
	Current  Slot
	Lag1     Slot
	Lag2     Slot
	Detected bool
}

// NewTransitionState returns the initial scan state: three ice slots
// pinned at the window start, no transition detected.
func NewTransitionState(startDOY float64) TransitionState {
	s := Slot{Class: Ice, TimeDOY: startDOY}
	return TransitionState{Current: s, Lag1: s, Lag2: s}
}

// Advance folds one observation into the state and returns the next
// state. Masked observations are skipped without disturbing the slots,
// and a frozen (detected) state is returned unchanged.
func (st TransitionState) Advance(o Observation) TransitionState {
	if !o.Present || st.Detected {
		return st
	}
	st.Lag2 = st.Lag1
	st.Lag1 = st.Current
	st.Current = Slot{Class: o.Class, TimeDOY: o.TimeDOY}

	if st.Current.Class == Water && st.Lag1.Class == Water && st.Lag2.Class == Ice {
		st.Detected = true
	}
	return st
}

// Detection is the per-pixel outcome of the sequence scan. When
// Detected is true, T1 is the timestamp of the first observed open
// water and T2 the timestamp of the last observed ice; T2 < T1 by
// construction. FirstObsWater records whether the chronologically first
// present observation was water, which invalidates the pixel: a
// transition cannot be trusted when the series does not start from a
// confirmed ice state.
type Detection struct {
	T1            float64
	T2            float64
	Detected      bool
	FirstObsWater bool
}

// DetectBreakup scans the series in ascending time order for the first
// ice-water-water pattern. The series must already be filtered; the
// caller is responsible for sorting being cheap to repeat, so the scan
// sorts defensively. A pixel whose first present observation is water
// reports Detected=false regardless of any later pattern.
func DetectBreakup(s Series, startDOY float64) Detection {
	ordered := s.Clone()
	ordered.SortAscending()

	st := NewTransitionState(startDOY)
	var d Detection
	seenFirst := false
	for _, o := range ordered {
		if !o.Present {
			continue
		}
		if !seenFirst {
			seenFirst = true
			d.FirstObsWater = o.Class == Water
		}
		st = st.Advance(o)
	}

	if st.Detected && !d.FirstObsWater {
		d.Detected = true
		d.T1 = st.Lag1.TimeDOY
		d.T2 = st.Lag2.TimeDOY
	}
	return d
}
