// Package classify predicts the AQI severity category from weather
// features with several classifier families and scores them side by side.
package classify

import "math"

// Category is an AQI severity band
type Category string

// AQI severity bands, in increasing severity
const (
	Good                        Category = "Good"
	Moderate                    Category = "Moderate"
	UnhealthyForSensitiveGroups Category = "Unhealthy for Sensitive Groups"
	Unhealthy                   Category = "Unhealthy"
	VeryUnhealthy               Category = "Very Unhealthy"
	Hazardous                   Category = "Hazardous"
)

// Categories lists every band in increasing severity
var Categories = []Category{Good, Moderate, UnhealthyForSensitiveGroups, Unhealthy, VeryUnhealthy, Hazardous}

// Categorize maps an AQI value to its band. Upper bounds are inclusive.
func Categorize(aqi float64) Category {
	switch {
	case aqi <= 50:
		return Good
	case aqi <= 100:
		return Moderate
	case aqi <= 150:
		return UnhealthyForSensitiveGroups
	case aqi <= 200:
		return Unhealthy
	case aqi <= 300:
		return VeryUnhealthy
	default:
		return Hazardous
	}
}

// HealthImpact describes what a band means for the public
type HealthImpact struct {
	Category            Category `json:"category"`
	Range               string   `json:"range"`
	Color               string   `json:"color"`
	Message             string   `json:"message"`
	HealthImplications  string   `json:"health_implications"`
	CautionaryStatement string   `json:"cautionary_statement"`
}

var impacts = map[Category]HealthImpact{
	Good: {
		Category:            Good,
		Range:               "0-50",
		Color:               "#4CAF50",
		Message:             "Air quality is good. Ideal for outdoor activities!",
		HealthImplications:  "Air quality is satisfactory, and air pollution poses little or no risk.",
		CautionaryStatement: "None",
	},
	Moderate: {
		Category:            Moderate,
		Range:               "51-100",
		Color:               "#FFEB3B",
		Message:             "Air quality is acceptable for most people.",
		HealthImplications:  "Air quality is acceptable. However, there may be a risk for some people, particularly those who are unusually sensitive to air pollution.",
		CautionaryStatement: "Active children and adults, and people with respiratory disease, such as asthma, should limit prolonged outdoor exertion.",
	},
	UnhealthyForSensitiveGroups: {
		Category:            UnhealthyForSensitiveGroups,
		Range:               "101-150",
		Color:               "#FF9800",
		Message:             "Sensitive groups should limit prolonged outdoor exposure.",
		HealthImplications:  "Members of sensitive groups may experience health effects. The general public is less likely to be affected.",
		CautionaryStatement: "Active children and adults, and people with respiratory disease, such as asthma, should avoid prolonged outdoor exertion; everyone else, especially children, should limit prolonged outdoor exertion.",
	},
	Unhealthy: {
		Category:            Unhealthy,
		Range:               "151-200",
		Color:               "#F44336",
		Message:             "Everyone may begin to experience health effects.",
		HealthImplications:  "Some members of the general public may experience health effects; members of sensitive groups may experience more serious health effects.",
		CautionaryStatement: "Active children and adults, and people with respiratory disease, such as asthma, should avoid all outdoor exertion; everyone else, especially children, should limit outdoor exertion.",
	},
	VeryUnhealthy: {
		Category:            VeryUnhealthy,
		Range:               "201-300",
		Color:               "#9C27B0",
		Message:             "Health alert: Everyone may experience serious effects.",
		HealthImplications:  "Health alert: The risk of health effects is increased for everyone.",
		CautionaryStatement: "Active children and adults, and people with respiratory disease, such as asthma, should avoid all outdoor exertion; everyone else, especially children, should limit outdoor exertion.",
	},
	Hazardous: {
		Category:            Hazardous,
		Range:               "301+",
		Color:               "#7E0023",
		Message:             "Health warning: Emergency conditions. Avoid outdoor activities.",
		HealthImplications:  "Health warning of emergency conditions: everyone is more likely to be affected.",
		CautionaryStatement: "Everyone should avoid all outdoor exertion.",
	},
}

// Impact returns the public health description of a band
func (c Category) Impact() HealthImpact {
	return impacts[c]
}

// HealthMessage returns the short advice for an AQI value
func HealthMessage(aqi float64) string {
	if math.IsNaN(aqi) || math.IsInf(aqi, 0) {
		return "Air quality data is not available."
	}
	return Categorize(aqi).Impact().Message
}

// HealthImpacts returns the description of every band in severity order
func HealthImpacts() []HealthImpact {
	out := make([]HealthImpact, len(Categories))
	for i, c := range Categories {
		out[i] = impacts[c]
	}
	return out
}
