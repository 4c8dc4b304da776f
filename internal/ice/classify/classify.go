// Package classify holds the three fixed ice/water/cloud decision
// trees for Landsat 7, Landsat 8, and Sentinel-2 top-of-atmosphere
// reflectance. The trees are pre-trained constants: each classifier is
// a pure function from a small reflectance feature vector to a label,
// carried as read-only configuration by the pipeline. Cloud labels
// translate to masked (no-data) observations upstream of detection.
package classify

// Label is the ternary classifier output. Values follow the original
// training encoding: water 0, ice 1, cloud 9.
type Label uint8

const (
	LabelWater Label = 0
	LabelIce   Label = 1
	LabelCloud Label = 9
)

func (l Label) String() string {
	switch l {
	case LabelWater:
		return "water"
	case LabelIce:
		return "ice"
	case LabelCloud:
		return "cloud"
	default:
		return "unknown"
	}
}

// Decision thresholds of the pre-trained trees, one set per sensor.
const (
	l7SWIR2Split = 0.08972447
	l7BlueSplit  = 0.164955

	l8BlueSplit = 0.1435298
	l8NDSISplit = 0.848531

	s2BlueSplit = 0.1408
	s2NDSISplit = 0.8190071
)

// NDSI returns the normalized difference snow index
// (green - swir1) / (green + swir1). Zero denominators yield 0 so a
// flat spectrum never produces NaN labels.
func NDSI(green, swir1 float64) float64 {
	d := green + swir1
	if d == 0 {
		return 0
	}
	return (green - swir1) / d
}

// LandsatT7TOA classifies a Landsat 7 TOA pixel from its blue and swir2
// reflectance. Low swir2 separates surfaces from cloud; blue then
// splits water from ice.
func LandsatT7TOA(blue, swir2 float64) Label {
	if swir2 < l7SWIR2Split {
		if blue < l7BlueSplit {
			return LabelWater
		}
		return LabelIce
	}
	return LabelCloud
}

// LandsatT8TOA classifies a Landsat 8 TOA pixel from its blue
// reflectance and NDSI. Dark blue is water; bright pixels split into
// ice (high NDSI) and cloud.
func LandsatT8TOA(blue, ndsi float64) Label {
	if blue < l8BlueSplit {
		return LabelWater
	}
	if ndsi >= l8NDSISplit {
		return LabelIce
	}
	return LabelCloud
}

// SentinelS2TOA classifies a Sentinel-2 TOA pixel from its blue
// reflectance and NDSI, with the same shape as the Landsat 8 tree but
// sensor-specific thresholds.
func SentinelS2TOA(blue, ndsi float64) Label {
	if blue < s2BlueSplit {
		return LabelWater
	}
	if ndsi >= s2NDSISplit {
		return LabelIce
	}
	return LabelCloud
}

// ForSensor returns the classifier for a sensor code ("L7", "L8",
// "S2"), or nil for unknown sensors. L7 takes (blue, swir2); L8 and S2
// take (blue, ndsi).
func ForSensor(sensor string) func(a, b float64) Label {
	switch sensor {
	case "L7":
		return LandsatT7TOA
	case "L8":
		return LandsatT8TOA
	case "S2":
		return SentinelS2TOA
	default:
		return nil
	}
}
