// Package risk orchestrates the inference pipeline: it scales a feature
// window, classifies it, and reduces class probabilities to the risk payloads
// served by the API, per location and per route segment.
package risk

// ConditionLabel maps a WMO-style weather code to a human-facing condition
// label. This reflects current observed conditions, independent of the model's
// own rain prediction.
func ConditionLabel(code int) string {
	switch {
	case code >= 95:
		return "Storm"
	case code == 0 || code == 1 || code == 2:
		return "Sunny/Clear"
	case code == 3:
		return "Cloudy"
	case code == 51 || code == 53 || code == 55 || code == 61 || code == 63 || code == 65:
		return "Rain"
	default:
		return "Clear"
	}
}

// StatusForProbability maps a rain probability to the driving-condition
// status shown in the detail view. Thresholds are strict: exactly 40.0 is
// "Safe" and exactly 80.0 is "Caution".
func StatusForProbability(p float64) string {
	switch {
	case p > 80:
		return "Danger"
	case p > 40:
		return "Caution"
	default:
		return "Safe"
	}
}

// RecommendedSpeed maps a rain probability to the advised travel speed in
// km/h, as a step function with inclusive lower bounds.
func RecommendedSpeed(p float64) int {
	switch {
	case p >= 70:
		return 50
	case p >= 40:
		return 65
	case p >= 15:
		return 75
	default:
		return 80
	}
}
