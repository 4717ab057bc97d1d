package models

import "time"

// TripStatus is the registrar status reported for a trip.
type TripStatus string

const (
	TripRegistered      TripStatus = "registered"
	TripLocalRegistered TripStatus = "local_registered"
	TripActive          TripStatus = "active"
	TripExpired         TripStatus = "expired"
	TripLocalActive     TripStatus = "local_active"
	TripLocalExpired    TripStatus = "local_expired"
	TripDeleted         TripStatus = "deleted"
	TripLocalDeleted    TripStatus = "local_deleted"
	TripUnknown         TripStatus = "unknown"
)

// LocalFallbackTxHash marks a trip that never reached the chain.
const LocalFallbackTxHash = "local_fallback"

// Trip is the locally stored record of a registered trip.
type Trip struct {
	TripID    string     `json:"trip_id"`
	TripHash  string     `json:"trip_id_hash"`
	ExpiresAt time.Time  `json:"expiry_date"`
	TxHash    string     `json:"transaction_hash"`
	Block     uint64     `json:"block_number"`
	Status    TripStatus `json:"status"`
	OnChain   bool       `json:"on_chain"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsExpired reports whether the trip's expiry has passed at now.
func (t *Trip) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TripRegistration is returned when a trip is registered.
type TripRegistration struct {
	TripID          string     `json:"trip_id"`
	TripHash        string     `json:"trip_id_hash"`
	ExpiryTimestamp int64      `json:"expiry_timestamp"`
	ExpiryDate      string     `json:"expiry_date"`
	TxHash          string     `json:"transaction_hash"`
	BlockNumber     uint64     `json:"block_number"`
	Status          TripStatus `json:"status"`
	Error           string     `json:"error,omitempty"`
}

// TripState is returned by a status check.
type TripState struct {
	TripID          string     `json:"trip_id"`
	IsActive        bool       `json:"is_active"`
	ExpiryTimestamp int64      `json:"expiry_timestamp"`
	ExpiryDate      string     `json:"expiry_date"`
	Status          TripStatus `json:"status"`
	Error           string     `json:"error,omitempty"`
}

// TripDeletion is returned when a trip is deleted.
type TripDeletion struct {
	TripID      string     `json:"trip_id"`
	TxHash      string     `json:"transaction_hash"`
	BlockNumber uint64     `json:"block_number"`
	Status      TripStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// TripCleanup summarises a cleanup pass over expired trips.
type TripCleanup struct {
	Status  string   `json:"status"`
	Removed []string `json:"removed"`
	Failed  []string `json:"failed,omitempty"`
}
