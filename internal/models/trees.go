package models

// DefaultTreeCount is substituted when the tree lookup fails or finds nothing
const DefaultTreeCount = 5

// DefaultExposureMinutes is the out-of-the-box daily exposure
const DefaultExposureMinutes = 30

type DensitySource string

const (
	DensityFetched   DensitySource = "fetched"
	DensityDefaulted DensitySource = "defaulted"
	DensityManual    DensitySource = "manual"
)

// TreeDensity is the number of tree/forest features near a coordinate
type TreeDensity struct {
	Count  int           `json:"count"`
	Source DensitySource `json:"source"`
}

// Status maps the density source onto the shared signal tags
func (t TreeDensity) Status() SignalStatus {
	if t.Source == DensityDefaulted {
		return SignalDefaulted
	}
	return SignalOK
}

// ExposureConfig is how long a person stands under tree cover each day
type ExposureConfig struct {
	MinutesPerDay int `json:"minutes_per_day"`
}
