package types

// WeatherSnapshot is the current weather at a location.
type WeatherSnapshot struct {
	Temperature   float64 `json:"temp"`
	FeelsLike     float64 `json:"feels_like"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Description   string  `json:"description,omitempty"`
	Clouds        float64 `json:"clouds"`
}

// ForecastDay summarises one day of forecast. RainChance is a percentage.
type ForecastDay struct {
	Day        string  `json:"day"`
	RainChance float64 `json:"rain_chance"`
	RainVolume float64 `json:"rain_volume"`
	TempMin    float64 `json:"temp_min"`
	TempMax    float64 `json:"temp_max"`
}
