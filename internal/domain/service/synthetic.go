package service

import (
	"math/rand"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/pkg/constants"
	"github.com/turtacn/touristsafety/pkg/utils"
)

// SyntheticWeatherConditions are the condition labels drawn for generated locations.
var SyntheticWeatherConditions = []string{"clear", "cloudy", "rainy", "stormy", "foggy"}

// SyntheticGenerator produces labelled samples for bootstrapping the classifier
// when no real data exists. The label is an additive heuristic plus bounded noise,
// so a model trained on it learns that heuristic and nothing more.
type SyntheticGenerator struct {
	rng *rand.Rand
}

// NewSyntheticGenerator creates a generator whose output depends only on seed.
func NewSyntheticGenerator(seed int64) *SyntheticGenerator {
	return &SyntheticGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns n samples. n <= 0 yields the default sample count.
func (g *SyntheticGenerator) Generate(n int) []models.LabeledSample {
	if n <= 0 {
		n = constants.DefaultSyntheticSamples
	}
	out := make([]models.LabeledSample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.sample())
	}
	return out
}

func (g *SyntheticGenerator) sample() models.LabeledSample {
	r := g.rng
	profile := models.TouristProfile{
		Age:           18 + r.Intn(52),
		GroupSize:     1 + r.Intn(7),
		Experience:    models.ExperienceLevels[r.Intn(len(models.ExperienceLevels))],
		HasItinerary:  r.Intn(2) == 1,
		HealthScore:   5 + r.Intn(5),
		Transport:     models.TransportModes[r.Intn(len(models.TransportModes))],
		LanguageKnown: r.Intn(2) == 1,
	}
	lat := 12 + r.Float64()*23
	lon := 68 + r.Float64()*29
	density := float64(10 + r.Intn(90))
	loc := &models.LocationContext{
		Latitude:         &lat,
		Longitude:        &lon,
		CrowdDensity:     &density,
		WeatherCondition: SyntheticWeatherConditions[r.Intn(len(SyntheticWeatherConditions))],
	}

	noise := r.Intn(5) - 2
	return models.LabeledSample{
		Profile:  profile,
		Location: loc,
		Score:    utils.ClampInt(HeuristicScore(profile)+noise, constants.MinRiskScore, constants.MaxRiskScore),
	}
}

// HeuristicScore is the noise-free synthetic label for a profile.
func HeuristicScore(p models.TouristProfile) int {
	score := 5
	if p.GroupSize == 1 {
		score += 2
	}
	if p.Experience == models.ExperienceBeginner {
		score++
	}
	if !p.HasItinerary {
		score++
	}
	if p.Transport == models.TransportWalking {
		score++
	}
	if !p.LanguageKnown {
		score++
	}
	return score
}
