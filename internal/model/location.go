package model

import "math"

// Location represents a point in a named world.
// Value type, passed by value (immutable).
type Location struct {
	World string
	X     float64
	Y     float64
	Z     float64
}

// NewLocation creates a Location in the given world.
func NewLocation(world string, x, y, z float64) Location {
	return Location{World: world, X: x, Y: y, Z: z}
}

// WithY returns a new Location with an updated height (immutable pattern).
func (l Location) WithY(y float64) Location {
	l.Y = y
	return l
}

// IsZero reports whether the location is the zero value (no world set).
func (l Location) IsZero() bool {
	return l.World == ""
}

// HorizontalDistanceSquared returns the squared distance to another point
// projected onto the horizontal plane (Y is ignored, no sqrt).
// Returns +Inf if either location is undefined or the worlds differ.
func (l Location) HorizontalDistanceSquared(other Location) float64 {
	if l.IsZero() || other.IsZero() || l.World != other.World {
		return math.Inf(1)
	}
	dx := l.X - other.X
	dz := l.Z - other.Z
	return dx*dx + dz*dz
}
