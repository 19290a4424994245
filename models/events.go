package models

import (
	"encoding/json"
	"time"
)

// Event names pushed from the server to websocket clients.
const (
	EventReportsSync     = "reports:sync"
	EventReportNew       = "report:new"
	EventReportUpdate    = "report:update"
	EventRescuerLocation = "rescuer:location"
)

// Event names accepted from websocket clients.
const (
	EventIdentifyRescuer       = "identify-as-rescuer"
	EventTrackReport           = "track-report"
	EventUpdateRescuerLocation = "update-rescuer-location"
)

// EventMessage is the wire envelope for every websocket message pushed to a
// client.
type EventMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// InboundEvent is the envelope read off a client connection before the
// payload is decoded.
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// IdentifyRescuer is the payload of the identify-as-rescuer event.
type IdentifyRescuer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
}

// TrackReport is the payload of the track-report event.
type TrackReport struct {
	ShortCode string `json:"shortCode"`
}

// RescuerLocationUpdate is the payload of the update-rescuer-location event.
type RescuerLocationUpdate struct {
	RescuerID string  `json:"rescuerId"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// RescuerLocationEvent is the rescuer:location payload fanned out to the
// other rescuer connections.
type RescuerLocationEvent struct {
	RescuerID string    `json:"rescuerId"`
	Name      string    `json:"name,omitempty"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}
