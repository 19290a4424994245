package models

import "time"

// Severity grades how urgent a report is. Critical is reserved for
// life-threatening situations such as medical emergencies.
type Severity string

// Severity values, lowest to highest.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severity values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// NormalizeSeverity maps free-form severity input to a known value.
// Unknown or empty input falls back to high so that a garbled request
// never downgrades a call for help.
func NormalizeSeverity(v string) Severity {
	s := Severity(v)
	if !s.Valid() {
		return SeverityHigh
	}
	return s
}

// Status is the lifecycle state of a report.
type Status string

// Report lifecycle states. A report starts as StatusNew, is claimed by
// exactly one rescuer, walks the progress states and ends at StatusClosed,
// which is terminal. Release puts a claimed report back to StatusNew.
const (
	StatusNew     Status = "new"
	StatusClaimed Status = "claimed"
	StatusEnRoute Status = "en_route"
	StatusArrived Status = "arrived"
	StatusRescued Status = "rescued"
	StatusClosed  Status = "closed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusClaimed, StatusEnRoute, StatusArrived, StatusRescued, StatusClosed:
		return true
	}
	return false
}

// Releasable reports whether a report in this state can be returned to the
// open pool by its rescuer.
func (s Status) Releasable() bool {
	switch s {
	case StatusClaimed, StatusEnRoute, StatusArrived:
		return true
	}
	return false
}

// Source records which ingestion path produced a report.
type Source string

// Report ingestion sources.
const (
	SourceApp Source = "app"
	SourceSMS Source = "sms"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Valid reports whether the coordinates are inside the WGS84 ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Claimant identifies the rescuer currently working a report.
type Claimant struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Report holds the structure for the report collection in mongo. The same
// shape is kept verbatim by the in-memory store.
type Report struct {
	ID           string    `json:"id" bson:"_id"`
	ShortCode    string    `json:"shortCode" bson:"shortCode"`
	Location     Location  `json:"location" bson:"location"`
	Message      string    `json:"message" bson:"message"`
	Severity     Severity  `json:"severity" bson:"severity"`
	Status       Status    `json:"status" bson:"status"`
	Claimant     *Claimant `json:"claimant,omitempty" bson:"claimant,omitempty"`
	ETA          string    `json:"eta,omitempty" bson:"eta,omitempty"`
	Notes        string    `json:"notes,omitempty" bson:"notes,omitempty"`
	IsMedical    bool      `json:"isMedical" bson:"isMedical"`
	IsFragile    bool      `json:"isFragile" bson:"isFragile"`
	PeopleCount  int       `json:"peopleCount" bson:"peopleCount"`
	BatteryLevel *int      `json:"batteryLevel,omitempty" bson:"batteryLevel,omitempty"`
	PhotoRef     string    `json:"photoRef,omitempty" bson:"photoRef,omitempty"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Source       Source    `json:"source" bson:"source"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	LastUpdate   time.Time `json:"lastUpdate" bson:"lastUpdate"`
	Rev          int64     `json:"rev" bson:"rev"`
}

// SanitizedReport is the client-facing projection of a Report. It has no
// phone field at all, so reporter contact details cannot leak through any
// broadcast or REST read path.
type SanitizedReport struct {
	ID           string    `json:"id"`
	ShortCode    string    `json:"shortCode"`
	Location     Location  `json:"location"`
	Message      string    `json:"message"`
	Severity     Severity  `json:"severity"`
	Status       Status    `json:"status"`
	Claimant     *Claimant `json:"claimant,omitempty"`
	ETA          string    `json:"eta,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	IsMedical    bool      `json:"isMedical"`
	IsFragile    bool      `json:"isFragile"`
	PeopleCount  int       `json:"peopleCount"`
	BatteryLevel *int      `json:"batteryLevel,omitempty"`
	PhotoRef     string    `json:"photoRef,omitempty"`
	Source       Source    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUpdate   time.Time `json:"lastUpdate"`
	Rev          int64     `json:"rev"`
}

// Sanitized returns the client-safe projection of the report.
func (r Report) Sanitized() SanitizedReport {
	return SanitizedReport{
		ID:           r.ID,
		ShortCode:    r.ShortCode,
		Location:     r.Location,
		Message:      r.Message,
		Severity:     r.Severity,
		Status:       r.Status,
		Claimant:     r.Claimant,
		ETA:          r.ETA,
		Notes:        r.Notes,
		IsMedical:    r.IsMedical,
		IsFragile:    r.IsFragile,
		PeopleCount:  r.PeopleCount,
		BatteryLevel: r.BatteryLevel,
		PhotoRef:     r.PhotoRef,
		Source:       r.Source,
		CreatedAt:    r.CreatedAt,
		LastUpdate:   r.LastUpdate,
		Rev:          r.Rev,
	}
}
