package model

import (
	"sync"
	"time"
)

// Zone represents a fixed circular map area that towns can capture.
// Thread-safe: all mutable fields protected by mu. The geometry
// (center, radius) and the resolved capture settings are immutable
// after load.
type Zone struct {
	mu sync.RWMutex

	id          string
	center      Location
	chunkRadius int32 // radius in 16-unit chunks, > 0

	active                     bool
	controllingTown            string // "" = unowned
	capturingTown              string // "" = no attempt in progress
	lastCaptureTime            time.Time
	firstCaptureBonusAvailable bool
	color                      string

	// Per-zone capture settings, resolved from config at load time.
	preparationSeconds int32
	captureSeconds     int32
}

// NewZone creates a zone with the given geometry and resolved durations.
func NewZone(id string, center Location, chunkRadius int32, prepSeconds, captureSeconds int32) *Zone {
	return &Zone{
		id:                         id,
		center:                     center,
		chunkRadius:                chunkRadius,
		active:                     true,
		firstCaptureBonusAvailable: true,
		preparationSeconds:         prepSeconds,
		captureSeconds:             captureSeconds,
	}
}

// ID returns the zone id.
func (z *Zone) ID() string { return z.id }

// Center returns the zone's world-space center point.
func (z *Zone) Center() Location { return z.center }

// ChunkRadius returns the zone radius in chunks.
func (z *Zone) ChunkRadius() int32 { return z.chunkRadius }

// PreparationSeconds returns the resolved preparation countdown length.
func (z *Zone) PreparationSeconds() int32 { return z.preparationSeconds }

// CaptureSeconds returns the resolved capture countdown length.
func (z *Zone) CaptureSeconds() int32 { return z.captureSeconds }

// IsActive reports whether the zone currently accepts captures.
func (z *Zone) IsActive() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.active
}

// SetActive enables or disables captures for this zone.
func (z *Zone) SetActive(active bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.active = active
}

// ControllingTown returns the town currently controlling the zone ("" = none).
func (z *Zone) ControllingTown() string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.controllingTown
}

// SetControllingTown sets the controlling town.
func (z *Zone) SetControllingTown(town string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.controllingTown = town
}

// CapturingTown returns the town with an attempt in progress ("" = none).
func (z *Zone) CapturingTown() string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.capturingTown
}

// SetCapturingTown sets or clears the in-progress capturing town.
func (z *Zone) SetCapturingTown(town string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.capturingTown = town
}

// LastCaptureTime returns when the zone was last captured (zero = never).
func (z *Zone) LastCaptureTime() time.Time {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.lastCaptureTime
}

// SetLastCaptureTime records a successful capture timestamp.
func (z *Zone) SetLastCaptureTime(t time.Time) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.lastCaptureTime = t
}

// ConsumeFirstCaptureBonus clears the bonus-eligibility flag.
// Returns true only for the first call since the flag was last reset.
func (z *Zone) ConsumeFirstCaptureBonus() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	if !z.firstCaptureBonusAvailable {
		return false
	}
	z.firstCaptureBonusAvailable = false
	return true
}

// IsFirstCaptureBonusAvailable reports whether the one-time bonus is unclaimed.
func (z *Zone) IsFirstCaptureBonusAvailable() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.firstCaptureBonusAvailable
}

// ResetFirstCaptureBonus re-arms the one-time bonus (periodic reset).
func (z *Zone) ResetFirstCaptureBonus() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.firstCaptureBonusAvailable = true
}

// Color returns the marker color for visualization collaborators.
func (z *Zone) Color() string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.color
}

// SetColor sets the marker color.
func (z *Zone) SetColor(color string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.color = color
}

// Reset clears ownership, capture progress and re-arms the first-capture
// bonus. Used by the periodic zone reset and the admin reset command.
func (z *Zone) Reset() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.controllingTown = ""
	z.capturingTown = ""
	z.lastCaptureTime = time.Time{}
	z.firstCaptureBonusAvailable = true
}

// State returns a consistent snapshot of the zone's mutable state.
func (z *Zone) State() ZoneState {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return ZoneState{
		ZoneID:                     z.id,
		ControllingTown:            z.controllingTown,
		CapturingTown:              z.capturingTown,
		LastCaptureTime:            z.lastCaptureTime,
		FirstCaptureBonusAvailable: z.firstCaptureBonusAvailable,
		Color:                      z.color,
	}
}

// ApplyState restores mutable zone state, e.g. from the database at startup.
func (z *Zone) ApplyState(s ZoneState) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.controllingTown = s.ControllingTown
	z.capturingTown = s.CapturingTown
	z.lastCaptureTime = s.LastCaptureTime
	z.firstCaptureBonusAvailable = s.FirstCaptureBonusAvailable
	if s.Color != "" {
		z.color = s.Color
	}
}

// ZoneState is the persistable subset of a zone's fields.
type ZoneState struct {
	ZoneID                     string
	ControllingTown            string
	CapturingTown              string
	LastCaptureTime            time.Time
	FirstCaptureBonusAvailable bool
	Color                      string
}
