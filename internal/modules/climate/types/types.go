package types

// Station is a fixed observation point identified by its code.
type Station struct {
	Code      string  `json:"station"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// Measurement is one daily reading. Date is stored as YYYY-MM-DD text.
type Measurement struct {
	Station string   `json:"station"`
	Date    string   `json:"date"`
	Prcp    *float64 `json:"prcp"`
	TOBS    float64  `json:"tobs"`
}

// PrecipitationRow is a (date, prcp) pair as read from the store.
type PrecipitationRow struct {
	Date string
	Prcp *float64
}

// Precipitation maps a date to its precipitation; null when not recorded.
type Precipitation map[string]*float64

// TOBSObservation is one temperature reading of the most active station.
type TOBSObservation struct {
	Date string  `json:"Date"`
	TOBS float64 `json:"TOBS"`
}

// TemperatureStats fields are nil when no row matched the date filter.
type TemperatureStats struct {
	TMIN *float64 `json:"TMIN"`
	TAVG *float64 `json:"TAVG"`
	TMAX *float64 `json:"TMAX"`
}
