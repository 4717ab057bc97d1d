package models

import "time"

// DataSource tells where the numbers in a risk report came from.
type DataSource string

const (
	// SourceLive means the report was built from upstream data.
	SourceLive DataSource = "live"
	// SourceDefault means the upstream lookup failed and static defaults were used.
	SourceDefault DataSource = "default"
	// SourceUnavailable means no lookup was attempted (no coordinates or no provider).
	SourceUnavailable DataSource = "unavailable"
)

// Degraded reports whether the report carries defaults because of a failure.
func (s DataSource) Degraded() bool {
	return s == SourceDefault
}

// CrimeRiskFactors holds the nine crime sub-scores, each in [1,10].
type CrimeRiskFactors struct {
	Overall        float64 `json:"overall_risk"`
	RecentActivity float64 `json:"recent_activity_risk"`
	Theft          float64 `json:"theft_risk"`
	Violence       float64 `json:"violence_risk"`
	Robbery        float64 `json:"robbery_risk"`
	SexualCrime    float64 `json:"sexual_crime_risk"`
	CyberCrime     float64 `json:"cyber_crime_risk"`
	Time           float64 `json:"time_risk"`
	Seasonal       float64 `json:"seasonal_risk"`
}

// Values returns the sub-scores in feature-vector order.
func (f CrimeRiskFactors) Values() []float64 {
	return []float64{f.Overall, f.RecentActivity, f.Theft, f.Violence, f.Robbery, f.SexualCrime, f.CyberCrime, f.Time, f.Seasonal}
}

// UniformCrimeRisk returns factors with every slot set to v.
func UniformCrimeRisk(v float64) CrimeRiskFactors {
	return CrimeRiskFactors{v, v, v, v, v, v, v, v, v}
}

// CrimeStats are the categorised record counts behind a crime report.
type CrimeStats struct {
	TotalCrimes    int `json:"total_crimes"`
	Theft          int `json:"theft"`
	Robbery        int `json:"robbery"`
	Assault        int `json:"assault"`
	Fraud          int `json:"fraud"`
	Cyber          int `json:"cyber_crime"`
	Domestic       int `json:"domestic_violence"`
	SexualOffenses int `json:"sexual_offenses"`
	Other          int `json:"other"`
	RecentCrimes   int `json:"recent_crimes"`
}

// CrimeReport is the crime provider's answer for one location.
type CrimeReport struct {
	State           string           `json:"state,omitempty"`
	District        string           `json:"district,omitempty"`
	RiskFactors     CrimeRiskFactors `json:"risk_factors"`
	Stats           CrimeStats       `json:"crime_stats"`
	Recommendations []string         `json:"recommendations"`
	Source          DataSource       `json:"data_source"`
	FetchedAt       time.Time        `json:"last_updated"`
	Error           string           `json:"error,omitempty"`
}

// WeatherRiskFactors holds the weather sub-scores, each in [1,10].
type WeatherRiskFactors struct {
	Temperature float64 `json:"temperature_risk"`
	Humidity    float64 `json:"humidity_risk"`
	Wind        float64 `json:"wind_risk"`
	Visibility  float64 `json:"visibility_risk"`
	UV          float64 `json:"uv_risk"`
	Condition   float64 `json:"condition_risk"`
	Overall     float64 `json:"overall_weather_risk"`
}

// FeatureValues returns the four sub-scores used by the feature vector.
func (f WeatherRiskFactors) FeatureValues() []float64 {
	return []float64{f.Overall, f.Temperature, f.Visibility, f.Condition}
}

// CurrentWeather is the observed weather at lookup time.
type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Visibility  float64 `json:"visibility"`
	UVIndex     float64 `json:"uv_index"`
	Pressure    float64 `json:"pressure"`
	Conditions  string  `json:"conditions"`
}

// WeatherForecast is the same-day forecast.
type WeatherForecast struct {
	MaxTemperature      float64 `json:"max_temp"`
	MinTemperature      float64 `json:"min_temp"`
	PrecipitationChance float64 `json:"precipitation_probability"`
	Precipitation       float64 `json:"precipitation"`
	Conditions          string  `json:"conditions"`
}

// WeatherReport is the weather provider's answer for one location.
type WeatherReport struct {
	Current         CurrentWeather     `json:"current_weather"`
	Forecast        WeatherForecast    `json:"forecast"`
	RiskFactors     WeatherRiskFactors `json:"risk_factors"`
	Recommendations []string           `json:"recommendations"`
	Source          DataSource         `json:"data_source"`
	FetchedAt       time.Time          `json:"last_updated"`
	Error           string             `json:"error,omitempty"`
}
