// Package types defines the core domain model for the ClimaRoute weather-risk
// scoring service: hourly observations, the fixed-shape feature window fed to
// the rainfall classifier, and the risk payloads returned to callers.
package types

import "time"

// Model input shape. The classifier and scaler were fitted against a window of
// exactly WindowSize hourly rows with FeatureCount columns each; both values
// are wire-level invariants, not tunables.
const (
	WindowSize   = 24
	FeatureCount = 8
)

// Feature column indexes. The scaler and classifier were fitted against this
// exact column order; permuting it silently degrades predictions without any
// error being raised.
const (
	FeatTemperature = iota
	FeatHumidity
	FeatDewPoint
	FeatPressure
	FeatCloudCover
	FeatWindSpeed
	FeatHour
	FeatMonth
)

// Observation is one hourly weather reading as returned by the upstream
// provider. Immutable once received.
type Observation struct {
	Time        time.Time
	Temperature float64
	Humidity    float64
	DewPoint    float64
	Pressure    float64
	CloudCover  float64
	WindSpeed   float64
	WeatherCode int
}

// FeatureVector is one model-ready row: the six raw observation fields plus
// hour-of-day and month-of-year derived from the observation timestamp, in the
// fixed column order defined above.
type FeatureVector [FeatureCount]float64

// NewFeatureVector derives a FeatureVector from an observation.
func NewFeatureVector(o Observation) FeatureVector {
	return FeatureVector{
		FeatTemperature: o.Temperature,
		FeatHumidity:    o.Humidity,
		FeatDewPoint:    o.DewPoint,
		FeatPressure:    o.Pressure,
		FeatCloudCover:  o.CloudCover,
		FeatWindSpeed:   o.WindSpeed,
		FeatHour:        float64(o.Time.Hour()),
		FeatMonth:       float64(int(o.Time.Month())),
	}
}

// FeatureWindow is a chronologically ascending sequence of exactly WindowSize
// feature vectors ending at the most recent observation not later than "now".
type FeatureWindow []FeatureVector

// CurrentConditions is the provider's flat "current" block: the latest
// instantaneous reading, independent of the hourly series.
type CurrentConditions struct {
	Temperature float64
	Humidity    float64
	WindSpeed   float64
	WeatherCode int
}

// RiskAssessment is the risk payload for a single location.
// SafetyScore is derived: max(0, 100-RainProbability), rounded to one decimal.
type RiskAssessment struct {
	RainProbability float64 `json:"rain_probability"`
	SafetyScore     float64 `json:"safety_score"`
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	WindSpeed       float64 `json:"wind_speed"`
	Condition       string  `json:"condition"`
}

// SegmentResult is a RiskAssessment for a named route segment plus the
// recommended travel speed (km/h) derived from its rain probability.
type SegmentResult struct {
	Name             string  `json:"name"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	Temperature      float64 `json:"temperature"`
	Humidity         float64 `json:"humidity"`
	WindSpeed        float64 `json:"wind_speed"`
	Condition        string  `json:"condition"`
	RainProbability  float64 `json:"rain_probability"`
	RecommendedSpeed int     `json:"recommended_speed"`
	SafetyScore      float64 `json:"safety_score"`
}

// AssessmentRecord is the persisted form of a completed risk assessment,
// written to the history table after a successful single-location request.
type AssessmentRecord struct {
	ID              string    `json:"id"`
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	RainProbability float64   `json:"rain_probability"`
	SafetyScore     float64   `json:"safety_score"`
	Condition       string    `json:"condition"`
	InferencePath   string    `json:"inference_path"`
	CreatedAt       time.Time `json:"created_at"`
}
