package service

import (
	"time"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/pkg/constants"
)

// TimeOfDayRisk scores the hour of day: night (22:00–06:59) 8, evening (18:00–21:59) 6, day 3.
func TimeOfDayRisk(t time.Time) float64 {
	hour := t.Hour()
	switch {
	case hour >= 22 || hour <= 6:
		return 8
	case hour >= 18:
		return 6
	default:
		return 3
	}
}

// SeasonalRisk scores the month: winter (Dec–Feb) 7, monsoon (Jun–Sep) 6, otherwise 4.
func SeasonalRisk(t time.Time) float64 {
	switch t.Month() {
	case time.December, time.January, time.February:
		return 7
	case time.June, time.July, time.August, time.September:
		return 6
	default:
		return 4
	}
}

// GroupRisk is highest for solo travellers.
func GroupRisk(size int) float64 {
	switch {
	case size <= 1:
		return 8
	case size <= 3:
		return 4
	default:
		return 2
	}
}

// ExperienceRisk maps experience level to risk; unknown levels are neutral.
func ExperienceRisk(level models.ExperienceLevel) float64 {
	switch level {
	case models.ExperienceExpert:
		return 2
	case models.ExperienceIntermediate:
		return 5
	case models.ExperienceBeginner:
		return 8
	default:
		return constants.NeutralRisk
	}
}

// PlanningRisk is lower when the tourist has an itinerary.
func PlanningRisk(hasItinerary bool) float64 {
	if hasItinerary {
		return 3
	}
	return 7
}

// CrowdRisk scores crowd density: very crowded and nearly empty places both raise risk.
func CrowdRisk(density float64) float64 {
	switch {
	case density > 80:
		return 8
	case density > 60:
		return 6
	case density < 20:
		return 7
	default:
		return 4
	}
}

// TransportRisk maps transport mode to risk; unknown modes are neutral.
func TransportRisk(mode models.TransportMode) float64 {
	switch mode {
	case models.TransportWalking:
		return 8
	case models.TransportPublic:
		return 6
	case models.TransportPrivate:
		return 3
	case models.TransportRideShare:
		return 4
	default:
		return constants.NeutralRisk
	}
}

// LanguageRisk is lower when the tourist speaks the local language.
func LanguageRisk(known bool) float64 {
	if known {
		return 3
	}
	return 7
}
