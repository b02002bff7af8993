package domain

import "time"

// Condition is a normalized high-level weather condition label. Provider
// payloads use their own vocabularies; the fetcher maps them onto this
// stable set so downstream rules never see provider-specific strings.
type Condition string

const (
	ConditionUnknown      Condition = "Unknown"
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionRain         Condition = "Rain"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionSnow         Condition = "Snow"
	ConditionMist         Condition = "Mist"
)

// conditionIcons maps each canonical condition to a display icon code.
var conditionIcons = map[Condition]string{
	ConditionClear:        "01d",
	ConditionClouds:       "03d",
	ConditionRain:         "10d",
	ConditionDrizzle:      "09d",
	ConditionThunderstorm: "11d",
	ConditionSnow:         "13d",
	ConditionMist:         "50d",
}

// genericIcon is the safe default for unknown conditions.
const genericIcon = "02d"

// NormalizeCondition maps a provider condition string onto the canonical
// vocabulary. Unknown codes return ConditionUnknown rather than failing.
func NormalizeCondition(provider string) Condition {
	switch provider {
	case "Clear":
		return ConditionClear
	case "Clouds", "Cloudy", "Overcast":
		return ConditionClouds
	case "Rain":
		return ConditionRain
	case "Drizzle":
		return ConditionDrizzle
	case "Thunderstorm":
		return ConditionThunderstorm
	case "Snow", "Sleet":
		return ConditionSnow
	case "Mist", "Fog", "Haze", "Smoke":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}

// IconFor returns the display icon for a condition, falling back to a
// generic icon for unrecognized values.
func IconFor(c Condition) string {
	if icon, ok := conditionIcons[c]; ok {
		return icon
	}
	return genericIcon
}

// Snapshot is one immutable captured reading of environmental conditions
// at a destination. Missing provider fields are recorded as zero rather
// than null: downstream threshold comparisons assume every numeric field
// is present. That is a deliberate lossy-but-available tradeoff.
type Snapshot struct {
	DestinationID string `json:"destination_id"`
	Label         string `json:"label,omitempty"` // display name only, never used for lookups

	Temperature   float64 `json:"temperature"`    // °C
	Humidity      float64 `json:"humidity"`       // percent
	Pressure      float64 `json:"pressure"`       // hPa
	WindSpeed     float64 `json:"wind_speed"`     // m/s
	WindDirection float64 `json:"wind_direction"` // degrees
	Visibility    float64 `json:"visibility"`     // km
	UVIndex       float64 `json:"uv_index"`
	CloudCover    float64 `json:"cloud_cover"`  // percent
	PrecipChance  float64 `json:"precip_prob"`  // percent
	PrecipType    string  `json:"precip_type,omitempty"`

	Condition   Condition `json:"condition"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// FreshAt reports whether the snapshot is younger than window as of now.
// A zero FetchedAt is never fresh.
func (s Snapshot) FreshAt(now time.Time, window time.Duration) bool {
	if s.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(s.FetchedAt) < window
}
