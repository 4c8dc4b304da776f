package classify

import "testing"

func TestLandsatT7TOA(t *testing.T) {
	cases := []struct {
		name        string
		blue, swir2 float64
		want        Label
	}{
		{"dark water", 0.05, 0.02, LabelWater},
		{"bright ice", 0.40, 0.02, LabelIce},
		{"cloud", 0.40, 0.20, LabelCloud},
		{"blue at split is ice", 0.164955, 0.02, LabelIce},
		{"swir2 at split is cloud", 0.40, 0.08972447, LabelCloud},
	}
	for _, c := range cases {
		if got := LandsatT7TOA(c.blue, c.swir2); got != c.want {
			t.Errorf("%s: LandsatT7TOA(%v, %v) = %v, want %v", c.name, c.blue, c.swir2, got, c.want)
		}
	}
}

func TestLandsatT8TOA(t *testing.T) {
	cases := []struct {
		name       string
		blue, ndsi float64
		want       Label
	}{
		{"dark water", 0.05, 0.0, LabelWater},
		{"bright snowy ice", 0.40, 0.95, LabelIce},
		{"bright low-ndsi cloud", 0.40, 0.50, LabelCloud},
		{"ndsi at split is ice", 0.40, 0.848531, LabelIce},
	}
	for _, c := range cases {
		if got := LandsatT8TOA(c.blue, c.ndsi); got != c.want {
			t.Errorf("%s: LandsatT8TOA(%v, %v) = %v, want %v", c.name, c.blue, c.ndsi, got, c.want)
		}
	}
}

func TestSentinelS2TOA(t *testing.T) {
	if got := SentinelS2TOA(0.10, 0.0); got != LabelWater {
		t.Fatalf("expected water, got %v", got)
	}
	if got := SentinelS2TOA(0.30, 0.90); got != LabelIce {
		t.Fatalf("expected ice, got %v", got)
	}
	if got := SentinelS2TOA(0.30, 0.50); got != LabelCloud {
		t.Fatalf("expected cloud, got %v", got)
	}
}

func TestNDSI(t *testing.T) {
	if got := NDSI(0.6, 0.2); got < 0.49 || got > 0.51 {
		t.Fatalf("NDSI(0.6, 0.2) = %v, want 0.5", got)
	}
	if got := NDSI(0, 0); got != 0 {
		t.Fatalf("NDSI(0, 0) = %v, want 0", got)
	}
	// snow reflects green and absorbs swir: strongly positive
	if NDSI(0.8, 0.05) < 0.8 {
		t.Fatal("snow-like spectrum should have high NDSI")
	}
}

func TestForSensor(t *testing.T) {
	for _, s := range []string{"L7", "L8", "S2"} {
		if ForSensor(s) == nil {
			t.Fatalf("no classifier for %s", s)
		}
	}
	if ForSensor("MODIS") != nil {
		t.Fatal("unexpected classifier for unknown sensor")
	}
}
