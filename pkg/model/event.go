package model

import (
	"encoding/json"
	"math"
	"time"
)

// EventType identifies a geofence transition.
type EventType string

const (
	EventEnter       EventType = "enter"
	EventExit        EventType = "exit"
	EventApproaching EventType = "approaching"
)

// Event is a single geofence transition for one region.
type Event struct {
	Type   EventType `json:"type"`
	Region Region    `json:"region"`
	// Distance to the region center in meters. Exit events carry +Inf.
	Distance  float64   `json:"distance"`
	Timestamp time.Time `json:"timestamp"`
}

// eventJSON mirrors Event with a nullable distance, since JSON has no Infinity.
type eventJSON struct {
	Type      EventType `json:"type"`
	Region    Region    `json:"region"`
	Distance  *float64  `json:"distance"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalJSON encodes a non-finite distance as null.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{Type: e.Type, Region: e.Region, Timestamp: e.Timestamp}
	if !math.IsInf(e.Distance, 0) && !math.IsNaN(e.Distance) {
		d := e.Distance
		out.Distance = &d
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null distance as +Inf.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.Type = in.Type
	e.Region = in.Region
	e.Timestamp = in.Timestamp
	e.Distance = math.Inf(1)
	if in.Distance != nil {
		e.Distance = *in.Distance
	}
	return nil
}

// Title returns a short human readable description, used by the event log.
func (e *Event) Title() string {
	switch e.Type {
	case EventEnter:
		return "Entered " + e.Region.DisplayName()
	case EventExit:
		return "Left " + e.Region.DisplayName()
	case EventApproaching:
		return "Approaching " + e.Region.DisplayName()
	}
	return string(e.Type) + " " + e.Region.DisplayName()
}
