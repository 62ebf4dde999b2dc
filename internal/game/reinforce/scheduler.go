// Package reinforce schedules the hostile waves that defend a zone
// while it is being captured: a per-zone escalation counter, one global
// rate-limited spawn queue shared by all zones, kill feedback into the
// session clock and a retarget loop for live units.
package reinforce

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vekshin/warground/internal/config"
	"github.com/vekshin/warground/internal/event"
	"github.com/vekshin/warground/internal/model"
	"github.com/vekshin/warground/internal/town"
	"github.com/vekshin/warground/internal/world"
)

const (
	// A new wave phase comes due every 30 capture seconds.
	waveIntervalSeconds = 30
	// No new waves once the capture countdown enters its final minute.
	finalQuietSeconds = 60
	// Hard per-wave size ceiling regardless of escalation.
	maxWaveSize = 12

	drainInterval    = 500 * time.Millisecond
	retargetInterval = 2 * time.Second
)

// Sessions is the slice of the capture manager the scheduler needs.
type Sessions interface {
	// IsCapturing reports whether the zone has a session in the
	// capturing phase.
	IsCapturing(zoneID string) bool
	// ReduceCaptureTime applies kill feedback and re-evaluates
	// completion immediately; returns the session clock and liveness.
	ReduceCaptureTime(zoneID string, seconds int32) (elapsed, remaining int32, live bool)
}

// Scheduler owns per-zone reinforcement state and the global spawn
// queue. Thread-safe: protected by mu; the capture manager is never
// called while mu is held.
type Scheduler struct {
	mu sync.Mutex

	cfg      config.ReinforceConfig
	world    world.Service
	towns    town.Directory
	sessions Sessions
	bus      *event.Bus

	tracks map[string]*track
	queue  []spawnRequest

	// Buffered wake-up for the drain loop; it idles on an empty queue
	// and re-arms only when a request is enqueued.
	kick   chan struct{}
	stopCh chan struct{}
}

// NewScheduler creates a scheduler.
func NewScheduler(cfg config.ReinforceConfig, w world.Service, towns town.Directory, sessions Sessions, bus *event.Bus) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		world:    w,
		towns:    towns,
		sessions: sessions,
		bus:      bus,
		tracks:   make(map[string]*track, 8),
		kick:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// --- Capture manager hooks ---

// BeginTracking resets the zone's wave phase to 1, spawns the first
// wave immediately and starts the retarget loop.
func (s *Scheduler) BeginTracking(zone *model.Zone, attackingTown string) {
	if !s.cfg.Enabled {
		return
	}

	s.mu.Lock()
	if old := s.tracks[zone.ID()]; old != nil {
		close(old.stopRetarget)
	}
	t := newTrack(zone, attackingTown)
	s.tracks[zone.ID()] = t
	count := s.enqueueWaveLocked(t, 1)
	s.mu.Unlock()

	slog.Info("reinforcement tracking started",
		"zone", zone.ID(), "target_town", attackingTown, "wave_size", count)
	s.bus.Publish(event.ReinforcementPhaseSpawned{ZoneID: zone.ID(), Phase: 1, Count: count})
	s.wakeDrainer()
	go s.runRetarget(zone.ID(), t.stopRetarget)
}

// OnCaptureTick spawns every wave phase that came due on this session
// clock, in ascending order with no phase skipped.
func (s *Scheduler) OnCaptureTick(zone *model.Zone, elapsedSeconds, remainingSeconds int32) {
	if !s.cfg.Enabled {
		return
	}
	s.catchUp(zone.ID(), elapsedSeconds, remainingSeconds)
}

// StopTracking tears down the zone's reinforcement state: retarget loop
// cancelled, undrained requests purged from the global queue, all live
// units despawned. Safe to call for zones that were never tracked.
func (s *Scheduler) StopTracking(zoneID string) {
	s.mu.Lock()
	t, ok := s.tracks[zoneID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tracks, zoneID)

	kept := s.queue[:0]
	for _, req := range s.queue {
		if req.zoneID != zoneID {
			kept = append(kept, req)
		}
	}
	s.queue = kept

	units := make([]uint32, 0, len(t.activeUnits))
	for id := range t.activeUnits {
		units = append(units, id)
	}
	s.mu.Unlock()

	close(t.stopRetarget)
	for _, id := range units {
		s.world.DespawnUnit(id)
	}
	slog.Info("reinforcement tracking stopped", "zone", zoneID, "despawned", len(units))
}

// UnitKilled removes a destroyed reinforcement from the zone's active
// set and feeds the kill back into the session clock: 1-3 seconds come
// off the capture countdown and the expected wave phase is re-checked
// immediately so time compression never skips a wave.
func (s *Scheduler) UnitKilled(zoneID string, unitID uint32, killerID string) {
	s.mu.Lock()
	t, ok := s.tracks[zoneID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, active := t.activeUnits[unitID]; !active {
		s.mu.Unlock()
		return
	}
	delete(t.activeUnits, unitID)
	s.mu.Unlock()

	reduction := 1 + rand.Int32N(3)
	slog.Debug("reinforcement killed",
		"zone", zoneID, "unit", unitID, "killer", killerID, "time_reduction_s", reduction)

	elapsed, remaining, live := s.sessions.ReduceCaptureTime(zoneID, reduction)
	if live {
		s.catchUp(zoneID, elapsed, remaining)
	}
}

// --- Wave spawning ---

// catchUp spawns all wave phases due at the given session clock.
func (s *Scheduler) catchUp(zoneID string, elapsedSeconds, remainingSeconds int32) {
	var spawned []event.ReinforcementPhaseSpawned

	s.mu.Lock()
	t, ok := s.tracks[zoneID]
	if ok && remainingSeconds > finalQuietSeconds {
		expected := elapsedSeconds/waveIntervalSeconds + 1
		for t.currentPhase < expected {
			phase := t.currentPhase + 1
			count := s.enqueueWaveLocked(t, phase)
			t.currentPhase = phase
			spawned = append(spawned, event.ReinforcementPhaseSpawned{
				ZoneID: zoneID, Phase: phase, Count: count,
			})
		}
	}
	s.mu.Unlock()

	for _, ev := range spawned {
		slog.Info("reinforcement wave due", "zone", ev.ZoneID, "phase", ev.Phase, "count", ev.Count)
		s.bus.Publish(ev)
	}
	if len(spawned) > 0 {
		s.wakeDrainer()
	}
}

// enqueueWaveLocked puts one wave's spawn requests on the global queue.
// The wave grows with the phase, capped by maxWaveSize and by the
// remaining per-zone capacity. Returns the number enqueued.
func (s *Scheduler) enqueueWaveLocked(t *track, phase int32) int {
	mobs := s.cfg.BaseMobsPerWave + int(phase)
	if mobs > maxWaveSize {
		mobs = maxWaveSize
	}
	capacity := s.cfg.MaxMobsPerZone - len(t.activeUnits)
	if capacity < 0 {
		capacity = 0
	}
	if mobs > capacity {
		mobs = capacity
	}
	for range mobs {
		s.queue = append(s.queue, spawnRequest{zoneID: t.zone.ID()})
	}
	return mobs
}

func (s *Scheduler) wakeDrainer() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// --- Queue drain ---

// Start runs the global queue drain loop (blocks until the context is
// canceled or Stop is called). On exit all tracked zones are torn down.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("spawn queue drainer started",
		"interval", drainInterval, "max_per_tick", s.cfg.MaxSpawnsPerTick)
	defer s.shutdown()

	for {
		// Idle until a request arrives.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-s.kick:
		}

		ticker := time.NewTicker(drainInterval)
		for {
			s.DrainOnce()
			if s.QueueLen() == 0 {
				break
			}
			select {
			case <-ctx.Done():
				ticker.Stop()
				return ctx.Err()
			case <-s.stopCh:
				ticker.Stop()
				return nil
			case <-ticker.C:
			}
		}
		ticker.Stop()
	}
}

// Stop stops the drain loop.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// DrainOnce pops up to maxSpawnsPerTick requests and spawns them.
// Requests whose session died or whose zone is at capacity are dropped
// silently, never re-queued.
func (s *Scheduler) DrainOnce() int {
	s.mu.Lock()
	n := s.cfg.MaxSpawnsPerTick
	if n > len(s.queue) {
		n = len(s.queue)
	}
	batch := make([]spawnRequest, n)
	copy(batch, s.queue[:n])
	s.queue = s.queue[n:]
	s.mu.Unlock()

	spawned := 0
	for _, req := range batch {
		if s.spawnOne(req.zoneID) {
			spawned++
		}
	}
	return spawned
}

// spawnOne re-validates and spawns a single reinforcement. Any failure
// means "this request did nothing": logged, dropped, never fatal.
func (s *Scheduler) spawnOne(zoneID string) bool {
	if !s.sessions.IsCapturing(zoneID) {
		return false
	}

	s.mu.Lock()
	t, ok := s.tracks[zoneID]
	if !ok || len(t.activeUnits) >= s.cfg.MaxMobsPerZone {
		s.mu.Unlock()
		return false
	}
	zone := t.zone
	targetTown := t.targetTown
	s.mu.Unlock()

	loc, err := s.spawnLocation(zone)
	if err != nil {
		slog.Warn("spawn location resolution failed", "zone", zoneID, "err", err)
		return false
	}
	unitID, err := s.world.SpawnHostileUnit(s.cfg.MobKind, loc, world.UnitTag{
		ZoneID:   zoneID,
		TownName: targetTown,
	})
	if err != nil {
		slog.Warn("reinforcement spawn failed", "zone", zoneID, "err", err)
		return false
	}
	if err := s.world.HardenUnit(unitID); err != nil {
		slog.Warn("hardening reinforcement failed", "zone", zoneID, "unit", unitID, "err", err)
	}

	s.mu.Lock()
	// The session may have ended while spawning; despawn instead of
	// leaking an untracked unit.
	t, ok = s.tracks[zoneID]
	if !ok {
		s.mu.Unlock()
		s.world.DespawnUnit(unitID)
		return false
	}
	t.activeUnits[unitID] = struct{}{}
	s.mu.Unlock()
	return true
}

// spawnLocation picks a random surface point within the zone radius.
func (s *Scheduler) spawnLocation(zone *model.Zone) (model.Location, error) {
	center := zone.Center()
	radius := float64(zone.ChunkRadius()) * 16
	angle := rand.Float64() * 2 * math.Pi
	dist := rand.Float64() * radius
	x := center.X + dist*math.Cos(angle)
	z := center.Z + dist*math.Sin(angle)

	y, err := s.world.HighestSurfaceY(center.World, x, z)
	if err != nil {
		return model.Location{}, err
	}
	return model.NewLocation(center.World, x, y+1, z), nil
}

// shutdown tears down every tracked zone on process stop.
func (s *Scheduler) shutdown() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.tracks))
	for id := range s.tracks {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.StopTracking(id)
	}
}

// --- Introspection ---

// ActiveCount returns the number of live reinforcements for a zone.
func (s *Scheduler) ActiveCount(zoneID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tracks[zoneID]; ok {
		return len(t.activeUnits)
	}
	return 0
}

// CurrentPhase returns the zone's wave phase counter (0 = not tracked).
func (s *Scheduler) CurrentPhase(zoneID string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tracks[zoneID]; ok {
		return t.currentPhase
	}
	return 0
}

// IsTracking reports whether the zone has live reinforcement state.
func (s *Scheduler) IsTracking(zoneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tracks[zoneID]
	return ok
}

// QueueLen returns the number of undrained spawn requests.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
