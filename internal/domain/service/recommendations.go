package service

import "github.com/turtacn/touristsafety/internal/domain/models"

// SafeAreaAdvice is returned by CrimeRecommendations when no crime rule fires.
const SafeAreaAdvice = "Area appears relatively safe. Maintain normal safety precautions."

// FavorableWeatherAdvice is emitted when the overall weather risk is low.
const FavorableWeatherAdvice = "Favorable weather conditions for outdoor activities."

// CrimeRecommendations turns crime sub-scores into advice. Every rule is checked
// independently and in a fixed order.
func CrimeRecommendations(f models.CrimeRiskFactors) []string {
	var out []string
	if f.Overall > 7 {
		out = append(out, "High crime area detected. Consider alternative routes or times.")
	}
	if f.RecentActivity > 6 {
		out = append(out, "Recent criminal activity reported. Exercise extra caution.")
	}
	if f.Theft > 6 {
		out = append(out, "High theft risk. Keep valuables secure and avoid displaying expensive items.")
	}
	if f.Violence > 6 {
		out = append(out, "Violence risk elevated. Avoid isolated areas and travel in groups if possible.")
	}
	if f.Robbery > 6 {
		out = append(out, "Robbery risk high. Avoid carrying large amounts of cash or valuables.")
	}
	if f.SexualCrime > 6 {
		out = append(out, "Sexual crime risk present. Stay in well-lit, populated areas.")
	}
	if f.CyberCrime > 6 {
		out = append(out, "High cyber crime area. Be cautious with public WiFi and online transactions.")
	}
	if f.Time > 6 {
		out = append(out, "Night time travel risk. Consider daytime alternatives or use trusted transportation.")
	}
	if len(out) == 0 {
		out = append(out, SafeAreaAdvice)
	}
	return out
}

// WeatherRecommendations turns weather sub-scores into advice. An empty slice is
// a valid answer for unremarkable weather.
func WeatherRecommendations(f models.WeatherRiskFactors) []string {
	out := []string{}
	if f.Temperature > 7 {
		if f.Temperature > 8 {
			out = append(out, "Extreme temperature conditions. Avoid outdoor activities.")
		} else {
			out = append(out, "High temperature risk. Stay hydrated and seek shade.")
		}
	}
	if f.Wind > 7 {
		out = append(out, "High wind conditions. Be cautious of falling objects and debris.")
	}
	if f.Visibility > 7 {
		out = append(out, "Poor visibility conditions. Use extra caution when traveling.")
	}
	if f.UV > 6 {
		out = append(out, "High UV exposure. Use sunscreen and protective clothing.")
	}
	if f.Condition > 7 {
		out = append(out, "Severe weather conditions. Consider postponing outdoor activities.")
	}
	switch {
	case f.Overall > 7:
		out = append(out, "Overall weather conditions pose safety risks. Exercise caution.")
	case f.Overall < 4:
		out = append(out, FavorableWeatherAdvice)
	}
	return out
}

var bucketAdvice = map[models.RiskLevel][]string{
	models.RiskLow: {
		"Area is very safe. Normal precautions sufficient.",
		"Good location for solo travelers and families.",
	},
	models.RiskMedium: {
		"Moderate safety level. Stay alert and aware.",
		"Consider traveling in groups during evening hours.",
	},
	models.RiskHigh: {
		"High risk area. Exercise extreme caution.",
		"Avoid solo travel, especially at night.",
		"Consider alternative locations or routes.",
	},
}

// ScoreRecommendations returns the boilerplate advice for a score bucket.
func ScoreRecommendations(score int) []string {
	advice := bucketAdvice[models.RiskLevelFor(score)]
	return append([]string(nil), advice...)
}

// AssessmentRecommendations combines crime advice (when a crime report exists),
// weather advice (only for live weather data) and the score bucket boilerplate.
func AssessmentRecommendations(score int, crime *models.CrimeReport, weather *models.WeatherReport) []string {
	var out []string
	if crime != nil {
		out = append(out, CrimeRecommendations(crime.RiskFactors)...)
	}
	if weather != nil && weather.Source == models.SourceLive {
		out = append(out, WeatherRecommendations(weather.RiskFactors)...)
	}
	return append(out, ScoreRecommendations(score)...)
}
