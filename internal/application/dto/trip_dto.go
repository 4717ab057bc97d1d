package dto

// TripRegisterRequest registers a temporary trip. DurationHours defaults to a week.
type TripRegisterRequest struct {
	TripData      map[string]interface{} `json:"trip_data" validate:"required"`
	DurationHours int                    `json:"duration_hours" validate:"min=0,max=8760"`
}
