package types

import "fmt"

// GridStatus reports the state of the grid connection at the gateway.
//
// Off is set by software (Go Off-Grid in the vendor app), Down is external to
// the gateway, Normal is regular on-grid operation.
type GridStatus int

const (
	GridStatusNormal GridStatus = 0
	GridStatusDown   GridStatus = 1
	GridStatusOff    GridStatus = 2
)

func (g GridStatus) String() string {
	switch g {
	case GridStatusNormal:
		return "normal"
	case GridStatusDown:
		return "down"
	case GridStatusOff:
		return "off"
	}
	return fmt.Sprintf("GridStatus(%d)", int(g))
}

// GridStatusFromOffGridReason maps the gateway's offgridreason field to a
// GridStatus. A missing field (nil) or -1 means the grid is up.
func GridStatusFromOffGridReason(reason *int) (GridStatus, error) {
	if reason == nil {
		return GridStatusNormal, nil
	}
	switch *reason {
	case -1:
		return GridStatusNormal, nil
	case 0:
		return GridStatusDown, nil
	case 1:
		return GridStatusOff, nil
	}
	return GridStatusNormal, fmt.Errorf("unknown offgridreason value: %d", *reason)
}

// Current holds point-in-time power readings from the gateway, in kW unless
// noted otherwise.
type Current struct {
	SolarProduction     float64    `json:"solarProduction"`
	GeneratorProduction float64    `json:"generatorProduction"`
	GeneratorEnabled    bool       `json:"generatorEnabled"`
	BatteryUse          float64    `json:"batteryUse"`
	GridUse             float64    `json:"gridUse"`
	HomeLoad            float64    `json:"homeLoad"`
	BatterySOC          float64    `json:"batterySOC"`
	Switch1Load         float64    `json:"switch1Load"`
	Switch2Load         float64    `json:"switch2Load"`
	V2LUse              float64    `json:"v2lUse"`
	GridStatus          GridStatus `json:"gridStatus"`
}

// Totals holds cumulative daily energy figures in kWh, reset by the gateway
// at local midnight.
type Totals struct {
	BatteryCharge    float64 `json:"batteryCharge"`
	BatteryDischarge float64 `json:"batteryDischarge"`
	GridImport       float64 `json:"gridImport"`
	GridExport       float64 `json:"gridExport"`
	Solar            float64 `json:"solar"`
	Generator        float64 `json:"generator"`
	HomeUse          float64 `json:"homeUse"`
	Switch1Use       float64 `json:"switch1Use"`
	Switch2Use       float64 `json:"switch2Use"`
	V2LExport        float64 `json:"v2lExport"`
	V2LImport        float64 `json:"v2lImport"`
}

// Stats is a snapshot of the gateway: instantaneous readings plus the daily
// running totals.
type Stats struct {
	Current Current `json:"current"`
	Totals  Totals  `json:"totals"`
}

// EmptyStats returns a zeroed snapshot, useful as a placeholder before the
// first successful poll.
func EmptyStats() Stats {
	return Stats{}
}
