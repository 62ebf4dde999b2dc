package reinforce

import (
	"github.com/vekshin/warground/internal/model"
)

// track is the per-zone reinforcement state for one live session.
// Guarded by the scheduler mutex.
type track struct {
	zone *model.Zone
	// Town whose members the reinforcements hunt (the town holding
	// ground through the capture countdown).
	targetTown string

	// Wave escalation counter, starts at 1, monotonically non-decreasing.
	currentPhase int32

	activeUnits map[uint32]struct{}

	// Closed when the retarget loop must stop.
	stopRetarget chan struct{}
}

func newTrack(zone *model.Zone, targetTown string) *track {
	return &track{
		zone:         zone,
		targetTown:   targetTown,
		currentPhase: 1,
		activeUnits:  make(map[uint32]struct{}, 16),
		stopRetarget: make(chan struct{}),
	}
}

// spawnRequest is an opaque token on the global FIFO queue. It carries
// only the zone id: the scheduler re-resolves zone and session at drain
// time because either may be gone by then.
type spawnRequest struct {
	zoneID string
}
