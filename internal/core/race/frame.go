package race

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/swimrace/internal/core/geometry"
)

// EventKind names a per-racer transition.
type EventKind string

const (
	EventZoneEnter  EventKind = "zone:enter"
	EventBurstStart EventKind = "hyperburst:start"
	EventBurstEnd   EventKind = "hyperburst:end"
	EventFinish     EventKind = "finish"
)

// Event is a transition observed between two consecutive steps.
type Event struct {
	T       float64   `json:"t" msgpack:"t"`
	RacerID string    `json:"racer_id" msgpack:"racer_id"`
	Kind    EventKind `json:"kind" msgpack:"kind"`
	Payload Payload   `json:"payload" msgpack:"payload"`
}

// Payload carries the kind-specific data of an Event. Unused fields stay zero.
type Payload struct {
	Zone     geometry.ZoneKind `json:"zone,omitempty" msgpack:"zone,omitempty"`
	Place    int               `json:"place,omitempty" msgpack:"place,omitempty"`
	Time     float64           `json:"time,omitempty" msgpack:"time,omitempty"`
	Duration float64           `json:"duration,omitempty" msgpack:"duration,omitempty"`
}

// Lane is one racer's snapshot inside a Frame.
type Lane struct {
	RacerID        string            `json:"racer_id" msgpack:"racer_id"`
	Name           string            `json:"name" msgpack:"name"`
	Tint           string            `json:"tint" msgpack:"tint"`
	Position       mgl64.Vec2        `json:"position" msgpack:"position"`
	Heading        float64           `json:"heading" msgpack:"heading"`
	Velocity       mgl64.Vec2        `json:"velocity" msgpack:"velocity"`
	Speed          float64           `json:"speed" msgpack:"speed"`
	Distance       float64           `json:"distance" msgpack:"distance"`
	Progress       float64           `json:"progress" msgpack:"progress"`
	Zone           geometry.ZoneKind `json:"zone" msgpack:"zone"`
	Phase          string            `json:"phase" msgpack:"phase"`
	Bursting       bool              `json:"bursting" msgpack:"bursting"`
	BurstRemaining float64           `json:"burst_remaining" msgpack:"burst_remaining"`
	Finished       bool              `json:"finished" msgpack:"finished"`
	Place          int               `json:"place" msgpack:"place"` // 0 until finished
	FinishTime     float64           `json:"finish_time" msgpack:"finish_time"`
}

// Frame is the immutable result of one Step. Its slices are never shared with
// the engine or with other frames.
type Frame struct {
	T           float64 `json:"t" msgpack:"t"`
	TotalLength float64 `json:"total_length" msgpack:"total_length"`
	Lanes       []Lane  `json:"lanes" msgpack:"lanes"`
	Events      []Event `json:"events" msgpack:"events"`
	IsFinished  bool    `json:"is_finished" msgpack:"is_finished"`
}

// Lane returns the lane of racerID.
func (f Frame) Lane(racerID string) (Lane, bool) {
	for _, l := range f.Lanes {
		if l.RacerID == racerID {
			return l, true
		}
	}
	return Lane{}, false
}

// Result is a racer's final placement.
type Result struct {
	RacerID string  `json:"racer_id" msgpack:"racer_id"`
	Name    string  `json:"name" msgpack:"name"`
	Place   int     `json:"place" msgpack:"place"`
	Time    float64 `json:"time" msgpack:"time"`
}
