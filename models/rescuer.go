package models

import "time"

// Rescuer holds the structure for the rescuer collection in mongo. Identity
// is self-asserted at registration time; there are no credentials attached.
type Rescuer struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Organization string    `json:"organization,omitempty" bson:"organization,omitempty"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	RegisteredAt time.Time `json:"registeredAt" bson:"registeredAt"`
	LastSeen     time.Time `json:"lastSeen" bson:"lastSeen"`
	Active       bool      `json:"active" bson:"active"`
	LastLocation *Location `json:"lastLocation,omitempty" bson:"lastLocation,omitempty"`
}

// Ref returns the claimant reference for this rescuer.
func (r Rescuer) Ref() Claimant {
	return Claimant{ID: r.ID, Name: r.Name}
}
