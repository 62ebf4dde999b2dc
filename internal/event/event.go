// Package event defines the domain events emitted by the capture core
// and a small in-process bus that fans them out to collaborators
// (map markers, notifications, statistics, the websocket feed).
package event

import (
	"time"

	"github.com/vekshin/warground/internal/model"
)

// Type identifies an event kind on the wire and in subscriber filters.
type Type string

const (
	TypeCaptureStarted            Type = "capture_started"
	TypeCapturePhaseStarted       Type = "capture_phase_started"
	TypeCaptureCompleted          Type = "capture_completed"
	TypeCaptureFailed             Type = "capture_failed"
	TypeCaptureCancelled          Type = "capture_cancelled"
	TypeCaptureFailedByDeath      Type = "capture_failed_by_death"
	TypeReinforcementPhaseSpawned Type = "reinforcement_phase_spawned"
	TypeBufferZoneEntered         Type = "buffer_zone_entered"
)

// Event is implemented by all domain events.
type Event interface {
	EventType() Type
}

// CaptureStarted fires when a new session enters the preparation phase.
type CaptureStarted struct {
	ZoneID   string         `json:"zone_id"`
	TownName string         `json:"town"`
	Location model.Location `json:"location"`
}

func (CaptureStarted) EventType() Type { return TypeCaptureStarted }

// CapturePhaseStarted fires when preparation completes and the capture
// countdown begins.
type CapturePhaseStarted struct {
	ZoneID   string `json:"zone_id"`
	TownName string `json:"town"`
}

func (CapturePhaseStarted) EventType() Type { return TypeCapturePhaseStarted }

// CaptureCompleted fires on a successful capture.
type CaptureCompleted struct {
	ZoneID   string        `json:"zone_id"`
	TownName string        `json:"town"`
	Duration time.Duration `json:"duration_ms"`
}

func (CaptureCompleted) EventType() Type { return TypeCaptureCompleted }

// CaptureFailed fires when a session aborts for a non-death reason that
// counts as a failure (e.g. timeout).
type CaptureFailed struct {
	ZoneID   string `json:"zone_id"`
	TownName string `json:"town"`
	Reason   string `json:"reason"`
}

func (CaptureFailed) EventType() Type { return TypeCaptureFailed }

// CaptureCancelled fires when a session aborts (movement out of zone,
// disconnect, admin stop).
type CaptureCancelled struct {
	ZoneID   string `json:"zone_id"`
	TownName string `json:"town"`
	Reason   string `json:"reason"`
}

func (CaptureCancelled) EventType() Type { return TypeCaptureCancelled }

// CaptureFailedByDeath fires when a participant is eliminated by a
// hostile actor while the session is live.
type CaptureFailedByDeath struct {
	ZoneID   string `json:"zone_id"`
	TownName string `json:"town"`
	VictimID string `json:"victim"`
	KillerID string `json:"killer"`
}

func (CaptureFailedByDeath) EventType() Type { return TypeCaptureFailedByDeath }

// ReinforcementPhaseSpawned fires when a wave phase is enqueued.
type ReinforcementPhaseSpawned struct {
	ZoneID string `json:"zone_id"`
	Phase  int32  `json:"phase"`
	Count  int    `json:"count"`
}

func (ReinforcementPhaseSpawned) EventType() Type { return TypeReinforcementPhaseSpawned }

// BufferZoneEntered fires once when a hostile actor enters the
// radius+1 early-warning ring around an owned zone.
type BufferZoneEntered struct {
	ZoneID  string `json:"zone_id"`
	ActorID string `json:"actor"`
}

func (BufferZoneEntered) EventType() Type { return TypeBufferZoneEntered }
