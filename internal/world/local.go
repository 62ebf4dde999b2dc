package world

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vekshin/warground/internal/model"
)

// Unit is a hostile unit living in the local world.
type Unit struct {
	ID       uint32
	Kind     string
	Location model.Location
	Tag      UnitTag

	// "Safe" attributes applied by HardenUnit.
	Persistent bool
	FireImmune bool
	NoDespawn  bool

	TargetActorID string // "" = no target
}

// Local is an in-memory world: actor presence/positions and spawned
// units. Thread-safe: protected by mu. Unit ids are allocated from an
// atomic counter so they stay unique across the process lifetime.
type Local struct {
	mu     sync.RWMutex
	actors map[string]model.Location // actorID → position
	units  map[uint32]*Unit

	nextUnitID atomic.Uint32

	// Surface height returned by HighestSurfaceY; flat world.
	groundY float64
}

// NewLocal creates an empty local world with the given surface height.
func NewLocal(groundY float64) *Local {
	return &Local{
		actors:  make(map[string]model.Location, 64),
		units:   make(map[uint32]*Unit, 64),
		groundY: groundY,
	}
}

// Join connects an actor at the given position.
func (w *Local) Join(actorID string, loc model.Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.actors[actorID] = loc
}

// Leave disconnects an actor.
func (w *Local) Leave(actorID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.actors, actorID)
}

// MoveActor updates an actor's position. Unknown actors are ignored.
func (w *Local) MoveActor(actorID string, loc model.Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.actors[actorID]; ok {
		w.actors[actorID] = loc
	}
}

// SpawnHostileUnit spawns one hostile unit of the given kind.
func (w *Local) SpawnHostileUnit(kind string, loc model.Location, tag UnitTag) (uint32, error) {
	if loc.IsZero() {
		return 0, fmt.Errorf("spawning %s: undefined location", kind)
	}
	id := w.nextUnitID.Add(1)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.units[id] = &Unit{ID: id, Kind: kind, Location: loc, Tag: tag}
	return id, nil
}

// HardenUnit applies persistence, ignition-proofing and despawn protection.
func (w *Local) HardenUnit(unitID uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[unitID]
	if !ok {
		return fmt.Errorf("hardening unit %d: not found", unitID)
	}
	u.Persistent = true
	u.FireImmune = true
	u.NoDespawn = true
	return nil
}

// DespawnUnit removes a unit. Unknown ids are ignored.
func (w *Local) DespawnUnit(unitID uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.units, unitID)
}

// RetargetUnit points a unit at the given actor.
func (w *Local) RetargetUnit(unitID uint32, actorID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.units[unitID]
	if !ok {
		return fmt.Errorf("retargeting unit %d: not found", unitID)
	}
	u.TargetActorID = actorID
	return nil
}

// UnitLocation returns a unit's position.
func (w *Local) UnitLocation(unitID uint32) (model.Location, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.units[unitID]
	if !ok {
		return model.Location{}, false
	}
	return u.Location, true
}

// Unit returns a snapshot of a unit (for tests and admin info).
func (w *Local) Unit(unitID uint32) (Unit, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.units[unitID]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// UnitCount returns the number of live units.
func (w *Local) UnitCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.units)
}

// HighestSurfaceY resolves the surface height at (x, z).
func (w *Local) HighestSurfaceY(world string, x, z float64) (float64, error) {
	if world == "" {
		return 0, fmt.Errorf("resolving surface at (%.1f, %.1f): undefined world", x, z)
	}
	return w.groundY, nil
}

// IsActorOnline reports whether the actor is connected.
func (w *Local) IsActorOnline(actorID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.actors[actorID]
	return ok
}

// ActorLocation returns an online actor's position.
func (w *Local) ActorLocation(actorID string) (model.Location, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	loc, ok := w.actors[actorID]
	return loc, ok
}

// OnlineActorCount returns the number of connected actors.
func (w *Local) OnlineActorCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.actors)
}

// OnlineActors returns a snapshot of connected actor ids.
func (w *Local) OnlineActors() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result := make([]string, 0, len(w.actors))
	for id := range w.actors {
		result = append(result, id)
	}
	return result
}
