package arena

import (
	"log/slog"
	"math"

	"github.com/google/uuid"
)

const (
	enemyRadius   = 8.0   // collision radius, pixels
	enemyMaxSpeed = 140.0 // hard speed cap, pixels per second
	enemyDamping  = 0.92  // per-tick velocity retention at 60TPS
)

// MembershipKind discriminates the group-membership union.
type MembershipKind int

const (
	MemberOfNothing MembershipKind = iota
	MemberOfFormation
	MemberOfConstellation
)

func (mk MembershipKind) String() string {
	switch mk {
	case MemberOfNothing:
		return "none"
	case MemberOfFormation:
		return "formation"
	case MemberOfConstellation:
		return "constellation"
	default:
		return "unknown"
	}
}

// GroupMembership is a tagged union: an enemy belongs to nothing, exactly one
// formation, or exactly one constellation. Modelling this as one value (rather
// than independent marker fields) makes formation/constellation mutual
// exclusivity structural instead of convention-based.
type GroupMembership struct {
	Kind MembershipKind

	// Formation fields, valid when Kind == MemberOfFormation.
	FormationID uuid.UUID
	SlotIndex   int
	IsLeader    bool

	// Constellation field, valid when Kind == MemberOfConstellation.
	ConstellationID uuid.UUID
}

// NoMembership is the zero membership value.
func NoMembership() GroupMembership {
	return GroupMembership{Kind: MemberOfNothing}
}

// FormationMembership builds a formation membership marker.
func FormationMembership(id uuid.UUID, slot int, leader bool) GroupMembership {
	return GroupMembership{
		Kind:        MemberOfFormation,
		FormationID: id,
		SlotIndex:   slot,
		IsLeader:    leader,
	}
}

// ConstellationMembership builds a constellation membership marker.
func ConstellationMembership(id uuid.UUID) GroupMembership {
	return GroupMembership{
		Kind:            MemberOfConstellation,
		ConstellationID: id,
	}
}

// Enemy is one independently-simulated mobile entity in the arena.
type Enemy struct {
	id     int
	x, y   float64
	vx, vy float64

	dead       bool
	membership GroupMembership
	unit       *ForceUnit
}

// NewEnemy creates a live enemy at (x,y) with its own force unit.
func NewEnemy(id int, x, y, managedLocalWeight float64, log *slog.Logger) *Enemy {
	return &Enemy{
		id:   id,
		x:    x,
		y:    y,
		unit: NewForceUnit(managedLocalWeight, log),
	}
}

func (e *Enemy) ID() int                 { return e.id }
func (e *Enemy) Pos() (float64, float64) { return e.x, e.y }
func (e *Enemy) Vel() (float64, float64) { return e.vx, e.vy }
func (e *Enemy) IsDead() bool            { return e.dead }
func (e *Enemy) Unit() *ForceUnit        { return e.unit }

// Membership returns the enemy's current group membership marker.
func (e *Enemy) Membership() GroupMembership { return e.membership }

// Kill marks the enemy dead. Dead enemies are pruned from formations on the
// next director pass and skipped by every producer.
func (e *Enemy) Kill() { e.dead = true }

// SetPos teleports the enemy. Used by spawning and the test harness only.
func (e *Enemy) SetPos(x, y float64) {
	e.x = x
	e.y = y
}

// JoinFormation installs a formation marker, replacing any previous
// membership. Clearing a constellation marker here (assignment time) is what
// keeps the two grouping mechanisms mutually exclusive.
func (e *Enemy) JoinFormation(id uuid.UUID, slot int, leader bool) {
	e.membership = FormationMembership(id, slot, leader)
}

// JoinConstellation installs a constellation marker unless the enemy is
// already held by a formation; formations always win. Returns whether the
// marker was installed.
func (e *Enemy) JoinConstellation(id uuid.UUID) bool {
	if e.membership.Kind == MemberOfFormation {
		return false
	}
	e.membership = ConstellationMembership(id)
	return true
}

// LeaveGroup strips any group membership, reverting the enemy to independent
// local behaviour on its next UpdateWeights.
func (e *Enemy) LeaveGroup() {
	e.membership = NoMembership()
}

// Integrate applies the tick's net force to velocity and position. This is
// the downstream consumer of ComputeNetForce; the arbitration unit itself
// never moves anything.
func (e *Enemy) Integrate(fx, fy, dt float64) {
	if e.dead {
		return
	}
	e.vx = (e.vx + fx*dt) * enemyDamping
	e.vy = (e.vy + fy*dt) * enemyDamping
	speed := math.Hypot(e.vx, e.vy)
	if speed > enemyMaxSpeed {
		e.vx = e.vx / speed * enemyMaxSpeed
		e.vy = e.vy / speed * enemyMaxSpeed
	}
	e.x += e.vx * dt
	e.y += e.vy * dt
}
