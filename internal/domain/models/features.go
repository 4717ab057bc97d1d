package models

// FeatureCount is the fixed length of every feature vector.
const FeatureCount = 22

// FeatureNames lists the vector slots in order. Training and inference both rely on it.
var FeatureNames = [FeatureCount]string{
	"time_risk",
	"group_risk",
	"experience_risk",
	"planning_risk",
	"age",
	"health_score",
	"crime_overall_risk",
	"crime_recent_activity",
	"crime_theft_risk",
	"crime_violence_risk",
	"crime_robbery_risk",
	"crime_sexual_risk",
	"crime_cyber_risk",
	"crime_time_risk",
	"crime_seasonal_risk",
	"weather_overall_risk",
	"weather_temperature",
	"weather_visibility",
	"weather_condition",
	"crowd_density_risk",
	"transportation_risk",
	"language_barrier_risk",
}

// Slot offsets into a feature vector.
const (
	SlotTime = iota
	SlotGroup
	SlotExperience
	SlotPlanning
	SlotAge
	SlotHealth
	SlotCrimeStart
)

const (
	SlotWeatherStart = SlotCrimeStart + 9
	SlotCrowd        = SlotWeatherStart + 4
	SlotTransport    = SlotCrowd + 1
	SlotLanguage     = SlotTransport + 1
)

// FeatureVector is one row of model input.
type FeatureVector []float64

// Crime returns the nine crime slots.
func (v FeatureVector) Crime() []float64 {
	return v[SlotCrimeStart:SlotWeatherStart]
}

// Weather returns the four weather slots.
func (v FeatureVector) Weather() []float64 {
	return v[SlotWeatherStart:SlotCrowd]
}
