package reinforce

import (
	"log/slog"
	"time"

	"github.com/vekshin/warground/internal/game/geo"
	"github.com/vekshin/warground/internal/model"
)

// runRetarget is the per-zone retarget loop; it stops when stop closes.
func (s *Scheduler) runRetarget(zoneID string, stop chan struct{}) {
	ticker := time.NewTicker(retargetInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RetargetOnce(zoneID)
		}
	}
}

// RetargetOnce points every live reinforcement of the zone at the
// nearest eligible target: an online member of the hunted town inside
// the zone radius plus the follow margin. Units keep their current
// target when no candidate exists, and never give up a chase on
// distance alone.
func (s *Scheduler) RetargetOnce(zoneID string) {
	s.mu.Lock()
	t, ok := s.tracks[zoneID]
	if !ok {
		s.mu.Unlock()
		return
	}
	zone := t.zone
	targetTown := t.targetTown
	units := make([]uint32, 0, len(t.activeUnits))
	for id := range t.activeUnits {
		units = append(units, id)
	}
	s.mu.Unlock()

	candidates := s.eligibleTargets(zone, targetTown)
	if len(candidates) == 0 {
		return
	}

	for _, unitID := range units {
		unitLoc, ok := s.world.UnitLocation(unitID)
		if !ok {
			continue
		}
		nearest := nearestCandidate(unitLoc, candidates)
		if nearest == "" {
			continue
		}
		if err := s.world.RetargetUnit(unitID, nearest); err != nil {
			slog.Debug("retarget failed", "zone", zoneID, "unit", unitID, "err", err)
		}
	}
}

type targetCandidate struct {
	actorID string
	loc     model.Location
}

// eligibleTargets returns online members of the hunted town within the
// zone radius plus the follow margin.
func (s *Scheduler) eligibleTargets(zone *model.Zone, targetTown string) []targetCandidate {
	reach := zone.ChunkRadius() + s.cfg.FollowMarginChunks
	var result []targetCandidate
	for _, actorID := range s.world.OnlineActors() {
		if s.towns.TownOf(actorID) != targetTown {
			continue
		}
		loc, ok := s.world.ActorLocation(actorID)
		if !ok {
			continue
		}
		if !geo.IsWithinRadius(zone.Center(), loc, reach) {
			continue
		}
		result = append(result, targetCandidate{actorID: actorID, loc: loc})
	}
	return result
}

func nearestCandidate(from model.Location, candidates []targetCandidate) string {
	best := ""
	bestDist := 0.0
	for _, c := range candidates {
		d := from.HorizontalDistanceSquared(c.loc)
		if best == "" || d < bestDist {
			best = c.actorID
			bestDist = d
		}
	}
	return best
}
