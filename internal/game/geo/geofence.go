// Package geo provides the circular geofence math used by capture
// admission, the movement out-of-zone check and reinforcement targeting.
package geo

import (
	"math"

	"github.com/vekshin/warground/internal/model"
)

// ChunkSize is the side length of one chunk in world units.
const ChunkSize = 16.0

// HorizontalDistance returns the distance between the horizontal
// components of two points, expressed in chunk units.
// Returns +Inf if the points are in different worlds or either is
// undefined; callers must treat an infinite distance as "not contained".
func HorizontalDistance(a, b model.Location) float64 {
	d2 := a.HorizontalDistanceSquared(b)
	if math.IsInf(d2, 1) {
		return math.Inf(1)
	}
	return math.Sqrt(d2) / ChunkSize
}

// IsWithinRadius reports whether point lies within chunkRadius chunks of
// center. Pure, no side effects.
func IsWithinRadius(center, point model.Location, chunkRadius int32) bool {
	return HorizontalDistance(center, point) <= float64(chunkRadius)
}

// IsWithinBuffer reports whether point lies within the zone radius plus
// one chunk. Used for early-warning notifications around owned zones.
func IsWithinBuffer(center, point model.Location, chunkRadius int32) bool {
	return HorizontalDistance(center, point) <= float64(chunkRadius)+1
}
