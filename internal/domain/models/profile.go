package models

// ExperienceLevel is the self-reported travel experience of a tourist.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceExpert       ExperienceLevel = "expert"
)

// TransportMode is the main way a tourist moves around.
type TransportMode string

const (
	TransportWalking   TransportMode = "walking"
	TransportPublic    TransportMode = "public"
	TransportPrivate   TransportMode = "private"
	TransportRideShare TransportMode = "ride_share"
)

// ExperienceLevels lists the known experience levels.
var ExperienceLevels = []ExperienceLevel{ExperienceBeginner, ExperienceIntermediate, ExperienceExpert}

// TransportModes lists the known transport modes.
var TransportModes = []TransportMode{TransportWalking, TransportPublic, TransportPrivate, TransportRideShare}

// Profile defaults applied to zero-valued fields.
const (
	DefaultAge          = 30
	DefaultGroupSize    = 1
	DefaultHealthScore  = 8
	DefaultExperience   = ExperienceBeginner
	DefaultTransport    = TransportPublic
	DefaultCrowdDensity = 50.0
)

// TouristProfile is supplied by the caller for every prediction. Zero values mean
// "not provided" and are replaced by the defaults above.
type TouristProfile struct {
	Age           int             `json:"age,omitempty" validate:"min=0,max=120"`
	GroupSize     int             `json:"group_size,omitempty" validate:"min=0,max=100"`
	Experience    ExperienceLevel `json:"experience_level,omitempty"`
	HasItinerary  bool            `json:"has_itinerary"`
	HealthScore   int             `json:"health_score,omitempty" validate:"min=0,max=10"`
	Transport     TransportMode   `json:"transportation_mode,omitempty"`
	LanguageKnown bool            `json:"local_language_known"`
}

// WithDefaults returns a copy with every unset field filled in.
func (p TouristProfile) WithDefaults() TouristProfile {
	if p.Age <= 0 {
		p.Age = DefaultAge
	}
	if p.GroupSize <= 0 {
		p.GroupSize = DefaultGroupSize
	}
	if p.Experience == "" {
		p.Experience = DefaultExperience
	}
	if p.HealthScore <= 0 {
		p.HealthScore = DefaultHealthScore
	}
	if p.Transport == "" {
		p.Transport = DefaultTransport
	}
	return p
}

// LocationContext describes where and in what conditions the tourist is.
// Coordinates are pointers because 0,0 is a valid position.
type LocationContext struct {
	Latitude         *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude        *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	RadiusKm         int      `json:"radius_km,omitempty" validate:"min=0,max=500"`
	CrowdDensity     *float64 `json:"crowd_density,omitempty" validate:"omitempty,min=0,max=100"`
	WeatherCondition string   `json:"weather_condition,omitempty"`
}

// IsEmpty reports whether no location field was supplied. An empty location is
// treated like a missing one.
func (l *LocationContext) IsEmpty() bool {
	return l == nil || (l.Latitude == nil && l.Longitude == nil && l.RadiusKm == 0 &&
		l.CrowdDensity == nil && l.WeatherCondition == "")
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l *LocationContext) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

// Coordinates returns latitude and longitude. Callers must check HasCoordinates first.
func (l *LocationContext) Coordinates() (float64, float64) {
	return *l.Latitude, *l.Longitude
}

// Density returns the crowd density, or the default when unset.
func (l *LocationContext) Density() float64 {
	if l == nil || l.CrowdDensity == nil {
		return DefaultCrowdDensity
	}
	return *l.CrowdDensity
}

// GeoQuery is the normalized key for a provider lookup.
type GeoQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  int
}
