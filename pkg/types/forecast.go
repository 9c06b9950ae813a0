package types

// Status is the health classification of the forecast model.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusRisk    Status = "risk"
)

// Weather is one of the fixed weather scenarios used for full-day previews.
type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherCloudy Weather = "cloudy"
	WeatherRainy  Weather = "rainy"
)

// DeviationReport compares the live power against the forecast for the
// current slot. It is derived on every request and never stored.
type DeviationReport struct {
	ActualKW     float64 `json:"actualKW"`
	ForecastKW   float64 `json:"forecastKW"`
	DeviationPct float64 `json:"deviationPct"`
	Status       Status  `json:"status"`
}

// Realtime is the payload of the realtime endpoint.
//
// ChartSeries holds nil for slots that have not happened yet so charts do
// not draw into the future.
type Realtime struct {
	CurrentPower   float64    `json:"current_power"`
	DailyEnergy    float64    `json:"daily_energy"`
	CO2Reduce      float64    `json:"co2_reduce"`
	DeviationRate  float64    `json:"deviation_rate"`
	ChartSeries    []*float64 `json:"chart_series"`
	ForecastSeries []float64  `json:"forecast_series"`
	Status         Status     `json:"status"`
}

// ModelHistoryEntry is one row of the model audit table.
type ModelHistoryEntry struct {
	Date      string  `json:"date"`
	Deviation float64 `json:"deviation"`
	Status    Status  `json:"status"`
}

// ModelStatus is the payload of the model status endpoint.
type ModelStatus struct {
	Status       Status              `json:"status"`
	History      []ModelHistoryEntry `json:"history"`
	ModelVersion string              `json:"model_version"`
}
