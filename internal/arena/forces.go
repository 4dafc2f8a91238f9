package arena

import (
	"log/slog"
	"math"
)

// ForceSource identifies one named category of motion intent. Contributions
// are accumulated per source and only combined in ComputeNetForce.
type ForceSource int

const (
	ForceLocal         ForceSource = iota // flocking / separation from the enemy's own logic
	ForceFormation                        // slot steering deposited by the formation director
	ForceConstellation                    // steering from the emergent constellation grouper
	ForceCollision                        // hard overlap resolution, never suppressed
	ForceExternal                         // environment (drift field, knockback), never suppressed
	forceSourceCount
)

func (fs ForceSource) String() string {
	switch fs {
	case ForceLocal:
		return "local"
	case ForceFormation:
		return "formation"
	case ForceConstellation:
		return "constellation"
	case ForceCollision:
		return "collision"
	case ForceExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ParseForceSource maps a source name to its ForceSource. Used by data-driven
// producers; unknown names return ok=false.
func ParseForceSource(name string) (ForceSource, bool) {
	for fs := ForceSource(0); fs < forceSourceCount; fs++ {
		if fs.String() == name {
			return fs, true
		}
	}
	return 0, false
}

// Vec2 is a plain 2D vector used for force accumulators and net force.
type Vec2 struct {
	X, Y float64
}

// Mag returns the Euclidean magnitude.
func (v Vec2) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// defaultManagedLocalWeight is how much of an enemy's own local forces still
// apply while it is steered by a formation or constellation. Strictly above
// zero: member-vs-member separation must keep working even under group
// steering, or slots collapse into a single overlapping clump.
const defaultManagedLocalWeight = 0.35

// ForceUnit is the per-enemy force arbitration unit. Producers deposit tagged
// contributions during a tick; ComputeNetForce reduces them to one vector.
// Accumulators are cleared by Reset at the end of every tick; weights persist.
type ForceUnit struct {
	forces [forceSourceCount]Vec2

	formationWeight     float64
	constellationWeight float64
	managedLocalWeight  float64

	log *slog.Logger
}

// NewForceUnit creates a unit with zeroed accumulators. managedLocalWeight is
// clamped into (0,1); zero would let steered members overlap, one would make
// the managed state meaningless.
func NewForceUnit(managedLocalWeight float64, log *slog.Logger) *ForceUnit {
	if managedLocalWeight <= 0 || managedLocalWeight >= 1 {
		managedLocalWeight = defaultManagedLocalWeight
	}
	if log == nil {
		log = slog.Default()
	}
	return &ForceUnit{
		managedLocalWeight: managedLocalWeight,
		log:                log,
	}
}

// AddForce accumulates a contribution under the given source. Out-of-range
// sources and non-finite components are dropped rather than accumulated, so a
// single bad producer cannot poison the whole tick.
func (fu *ForceUnit) AddForce(src ForceSource, fx, fy float64) {
	if src < 0 || src >= forceSourceCount {
		fu.log.Debug("force dropped: unknown source", "source", int(src))
		return
	}
	if math.IsNaN(fx) || math.IsInf(fx, 0) || math.IsNaN(fy) || math.IsInf(fy, 0) {
		fu.log.Debug("force dropped: non-finite", "source", src.String(), "fx", fx, "fy", fy)
		return
	}
	fu.forces[src].X += fx
	fu.forces[src].Y += fy
}

// UpdateWeights derives the formation/constellation weights from the enemy's
// current group membership. Must run before ComputeNetForce each tick so a
// break in the same tick immediately restores full local weighting.
//
// The membership union makes simultaneous formation+constellation
// structurally impossible, but the formation-wins rule is still applied
// defensively here: a constellation weight never survives alongside a
// formation one.
func (fu *ForceUnit) UpdateWeights(m GroupMembership) {
	fu.formationWeight = 0
	fu.constellationWeight = 0
	switch m.Kind {
	case MemberOfFormation:
		fu.formationWeight = 1
	case MemberOfConstellation:
		fu.constellationWeight = 1
	}
	if fu.formationWeight > 0 && fu.constellationWeight > 0 {
		fu.log.Warn("enemy in formation and constellation at once; constellation suppressed")
		fu.constellationWeight = 0
	}
}

// Managed reports whether the owning enemy is currently steered by a
// formation or constellation.
func (fu *ForceUnit) Managed() bool {
	return fu.formationWeight > 0 || fu.constellationWeight > 0
}

// Weight returns the effective scale applied to a source by ComputeNetForce.
// Collision and external are pinned at 1: safety and world physics outrank
// group choreography and ambient behaviour alike.
func (fu *ForceUnit) Weight(src ForceSource) float64 {
	switch src {
	case ForceLocal:
		if fu.Managed() {
			return fu.managedLocalWeight
		}
		return 1
	case ForceFormation:
		return fu.formationWeight
	case ForceConstellation:
		return fu.constellationWeight
	case ForceCollision, ForceExternal:
		return 1
	default:
		return 0
	}
}

// Force returns the current accumulator for a source. Out-of-range sources
// return the zero vector.
func (fu *ForceUnit) Force(src ForceSource) Vec2 {
	if src < 0 || src >= forceSourceCount {
		return Vec2{}
	}
	return fu.forces[src]
}

// ComputeNetForce reduces the five accumulators to a single vector. Pure
// function of the current accumulator and weight state: calling it twice
// without an intervening AddForce/Reset/UpdateWeights returns identical
// results.
func (fu *ForceUnit) ComputeNetForce() Vec2 {
	var net Vec2
	for src := ForceSource(0); src < forceSourceCount; src++ {
		w := fu.Weight(src)
		if w == 0 {
			continue
		}
		net.X += fu.forces[src].X * w
		net.Y += fu.forces[src].Y * w
	}
	return net
}

// Reset zeroes every source accumulator for the next tick. Weights are left
// alone; they are owned by UpdateWeights.
func (fu *ForceUnit) Reset() {
	for i := range fu.forces {
		fu.forces[i] = Vec2{}
	}
}
