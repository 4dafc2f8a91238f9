package arena

import "math"

// CollisionResolver deposits hard-overlap separation under the collision
// source. Collision is pinned at weight 1.0 in the arbitration unit, so this
// producer wins over any group choreography by construction.
type CollisionResolver struct {
	tun CollisionTuning
}

// NewCollisionResolver builds a resolver with the given tuning.
func NewCollisionResolver(tun CollisionTuning) *CollisionResolver {
	return &CollisionResolver{tun: tun}
}

// Apply pushes apart every overlapping live pair, symmetric forces scaled by
// overlap depth. Exactly-coincident pairs get a deterministic axis nudge so
// the push is never the zero vector.
func (cr *CollisionResolver) Apply(enemies []*Enemy) {
	minDist := 2 * enemyRadius
	for i := 0; i < len(enemies); i++ {
		a := enemies[i]
		if a.IsDead() {
			continue
		}
		ax, ay := a.Pos()
		for j := i + 1; j < len(enemies); j++ {
			b := enemies[j]
			if b.IsDead() {
				continue
			}
			bx, by := b.Pos()
			dx := ax - bx
			dy := ay - by
			dist := math.Hypot(dx, dy)
			if dist >= minDist {
				continue
			}
			var nx, ny float64
			if dist > 1e-9 {
				nx, ny = dx/dist, dy/dist
			} else {
				nx, ny = 1, 0
			}
			depth := (minDist - dist) / minDist
			push := depth * cr.tun.PushStrength
			a.Unit().AddForce(ForceCollision, nx*push, ny*push)
			b.Unit().AddForce(ForceCollision, -nx*push, -ny*push)
		}
	}
}
