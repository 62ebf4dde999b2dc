// Package world defines the World/Entity collaborator contract the
// capture core depends on, plus an in-process implementation used by
// the server binary and the tests.
package world

import "github.com/vekshin/warground/internal/model"

// UnitTag marks a spawned hostile unit with the zone it defends and the
// town it fights for.
type UnitTag struct {
	ZoneID   string
	TownName string
}

// Service is the world/entity collaborator. Implementations must treat
// failures (unloaded chunk, invalid location) as recoverable: the
// caller drops the affected sub-step and continues.
type Service interface {
	// SpawnHostileUnit spawns one hostile unit of the given kind.
	SpawnHostileUnit(kind string, loc model.Location, tag UnitTag) (uint32, error)
	// HardenUnit applies the "safe" attributes to a spawned unit:
	// persistence, ignition-proofing, no despawn-by-distance.
	HardenUnit(unitID uint32) error
	// DespawnUnit removes a unit. Unknown ids are ignored.
	DespawnUnit(unitID uint32)
	// RetargetUnit points a unit's aggression at the given actor.
	RetargetUnit(unitID uint32, actorID string) error
	// UnitLocation returns a unit's current position.
	UnitLocation(unitID uint32) (model.Location, bool)
	// HighestSurfaceY resolves the surface height at (x, z).
	HighestSurfaceY(world string, x, z float64) (float64, error)

	// IsActorOnline reports whether the actor is connected.
	IsActorOnline(actorID string) bool
	// ActorLocation returns an online actor's position.
	ActorLocation(actorID string) (model.Location, bool)
	// OnlineActorCount returns the number of connected actors.
	OnlineActorCount() int
	// OnlineActors returns a snapshot of connected actor ids.
	OnlineActors() []string
}
