package types

type Category string

const (
	CategoryIrrigation  Category = "irrigation"
	CategoryDrainage    Category = "drainage"
	CategoryTemperature Category = "temperature"
	CategorySoil        Category = "soil"
	CategoryWeather     Category = "weather"
	CategoryTrend       Category = "trend"
	CategoryDisease     Category = "disease"
	CategoryPlanning    Category = "planning"
)

// Recommendation is an actionable piece of advice for an operator. Type uses
// the same scale as finding severities.
type Recommendation struct {
	Type     Severity       `json:"type"`
	Category Category       `json:"category"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Action   string         `json:"action"`
	Priority int            `json:"priority"`
	Data     map[string]any `json:"data,omitempty"`
	SensorID string         `json:"sensor_id,omitempty"`

	// Set when several recommendations were collapsed into this one.
	Count   int      `json:"count,omitempty"`
	Sensors []string `json:"sensors,omitempty"`
}
