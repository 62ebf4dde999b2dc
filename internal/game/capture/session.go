package capture

import (
	"sync"
	"time"

	"github.com/vekshin/warground/internal/model"
)

// Phase is the live sub-state of a capture session. Terminal states are
// not represented: a session that completes, fails or is cancelled is
// removed from the registry instead.
type Phase int32

const (
	PhasePreparing Phase = iota
	PhaseCapturing
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhaseCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// Session is one town's live attempt to capture one zone.
// Thread-safe: countdowns and participants protected by mu. Creation
// and destruction go through the Registry, which guarantees at most one
// session per zone.
type Session struct {
	mu sync.RWMutex

	zoneID      string
	townName    string
	initiatorID string
	startTime   time.Time

	phase Phase

	remainingPreparation int32
	initialPreparation   int32
	remainingCapture     int32
	initialCapture       int32

	participants map[string]struct{}
}

// NewSession creates a preparing session for the given zone.
func NewSession(zone *model.Zone, townName, initiatorID string, now time.Time) *Session {
	return &Session{
		zoneID:               zone.ID(),
		townName:             townName,
		initiatorID:          initiatorID,
		startTime:            now,
		phase:                PhasePreparing,
		remainingPreparation: zone.PreparationSeconds(),
		initialPreparation:   zone.PreparationSeconds(),
		remainingCapture:     zone.CaptureSeconds(),
		initialCapture:       zone.CaptureSeconds(),
		participants:         map[string]struct{}{initiatorID: {}},
	}
}

// ZoneID returns the zone under capture.
func (s *Session) ZoneID() string { return s.zoneID }

// TownName returns the attacking town.
func (s *Session) TownName() string { return s.townName }

// InitiatorID returns the actor who started the attempt.
func (s *Session) InitiatorID() string { return s.initiatorID }

// StartTime returns when the attempt was started.
func (s *Session) StartTime() time.Time { return s.startTime }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// AddParticipant credits an actor to the attempt (join-in-progress).
func (s *Session) AddParticipant(actorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[actorID] = struct{}{}
}

// RemoveParticipant removes an actor. Returns true if they were credited.
func (s *Session) RemoveParticipant(actorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.participants[actorID]
	delete(s.participants, actorID)
	return ok
}

// HasParticipant reports whether the actor is credited to the attempt.
func (s *Session) HasParticipant(actorID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.participants[actorID]
	return ok
}

// Participants returns a snapshot of credited actor ids.
func (s *Session) Participants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.participants))
	for id := range s.participants {
		result = append(result, id)
	}
	return result
}

// ParticipantCount returns the number of credited actors.
func (s *Session) ParticipantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}

// TickPreparation decrements the preparation countdown by one logical
// second (floored at zero). Returns true when it reaches zero.
func (s *Session) TickPreparation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remainingPreparation > 0 {
		s.remainingPreparation--
	}
	return s.remainingPreparation == 0
}

// BeginCapture transitions the session into the capturing phase.
func (s *Session) BeginCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseCapturing
}

// TickCapture decrements the capture countdown by one logical second
// (floored at zero). Returns true when it reaches zero.
func (s *Session) TickCapture() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remainingCapture > 0 {
		s.remainingCapture--
	}
	return s.remainingCapture == 0
}

// ReduceCapture shaves seconds off the capture countdown (floored at
// zero) and returns the new remaining value. Kill feedback uses this to
// speed up the attackers.
func (s *Session) ReduceCapture(seconds int32) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remainingCapture -= seconds
	if s.remainingCapture < 0 {
		s.remainingCapture = 0
	}
	return s.remainingCapture
}

// RemainingPreparation returns the preparation countdown.
func (s *Session) RemainingPreparation() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remainingPreparation
}

// RemainingCapture returns the capture countdown.
func (s *Session) RemainingCapture() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remainingCapture
}

// InitialPreparation returns the configured preparation length.
func (s *Session) InitialPreparation() int32 { return s.initialPreparation }

// InitialCapture returns the configured capture length.
func (s *Session) InitialCapture() int32 { return s.initialCapture }

// ElapsedCaptureSeconds returns how far the capture countdown has run.
func (s *Session) ElapsedCaptureSeconds() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialCapture - s.remainingCapture
}
