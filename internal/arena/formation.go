package arena

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Formation is one active geometric group. Owned exclusively by the director;
// enemies only ever see their own membership marker.
type Formation struct {
	ID        uuid.UUID
	PatternID string
	CenterX   float64
	CenterY   float64
	Rotation  float64
	Time      float64 // seconds since spawn, drives pattern pulsing
	Active    bool

	Members []*Enemy

	meta          PatternMeta
	designedCount int
	// lastSlots remembers the most recent world-space slot per original slot
	// index, so members keep a target when the provider returns a short list.
	lastSlots []Vec2
}

// minViableMembers is the live-member floor below which a formation breaks,
// as a fraction of its designed size.
const minViableFraction = 0.30

func (f *Formation) minViable() int {
	return int(math.Ceil(minViableFraction * float64(f.designedCount)))
}

// LiveMemberCount returns how many members are still alive.
func (f *Formation) LiveMemberCount() int {
	n := 0
	for _, m := range f.Members {
		if !m.IsDead() {
			n++
		}
	}
	return n
}

func (f *Formation) liveMemberIDs() []int {
	var ids []int
	for _, m := range f.Members {
		if !m.IsDead() {
			ids = append(ids, m.ID())
		}
	}
	return ids
}

// PopulationSource supplies candidate agents for new formations and the
// global cap used by the spawn-suppression gate.
type PopulationSource interface {
	// SpawnMember creates a live enemy at (x, y), or returns nil when the
	// global population cap prevents it.
	SpawnMember(x, y float64) *Enemy
	PopulationCount() int
	PopulationCap() int
}

// FormationDirector orchestrates the active formation set: spawn decisions,
// per-tick steering deposits, and the break transition. Collaborators are
// injected at construction; the director resolves nothing ambiently.
type FormationDirector struct {
	patterns PatternProvider
	pop      PopulationSource
	sink     EventSink
	log      *slog.Logger
	rng      *rand.Rand
	tun      *Tuning

	formations []*Formation
	spawnTimer float64
}

// NewFormationDirector wires a director to its collaborators. A nil sink is
// replaced by NullSink so event emission never needs a nil check.
func NewFormationDirector(patterns PatternProvider, pop PopulationSource, sink EventSink, tun *Tuning, rng *rand.Rand, log *slog.Logger) *FormationDirector {
	if sink == nil {
		sink = NullSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &FormationDirector{
		patterns:   patterns,
		pop:        pop,
		sink:       sink,
		log:        log,
		rng:        rng,
		tun:        tun,
		spawnTimer: tun.SpawnIntervalSec,
	}
}

// Formations returns the live formation set. Callers must treat it as
// read-only; the director is the single writer.
func (d *FormationDirector) Formations() []*Formation { return d.formations }

// ActiveCount returns how many formations are currently active.
func (d *FormationDirector) ActiveCount() int {
	n := 0
	for _, f := range d.formations {
		if f.Active {
			n++
		}
	}
	return n
}

// Update runs the director for one tick: spawn decision first, then every
// active formation's steering pass, then the sweep of broken records. Must run
// before any enemy's ComputeNetForce this tick.
func (d *FormationDirector) Update(tick int, dt, playerX, playerY float64, wave int) {
	d.spawnTimer -= dt
	if d.spawnTimer <= 0 {
		d.spawnTimer = d.tun.SpawnIntervalSec
		d.trySpawn(tick, playerX, playerY, wave)
	}

	for _, f := range d.formations {
		if f.Active {
			d.updateFormation(f, tick, dt, playerX, playerY)
		}
	}

	// Sweep broken formations, swap-with-last to keep removal O(1).
	for i := 0; i < len(d.formations); {
		if d.formations[i].Active {
			i++
			continue
		}
		last := len(d.formations) - 1
		d.formations[i] = d.formations[last]
		d.formations[last] = nil
		d.formations = d.formations[:last]
	}
}

// trySpawn runs the gated spawn decision. All failures here are recoverable:
// the worst outcome is that no formation appears this tick.
func (d *FormationDirector) trySpawn(tick int, playerX, playerY float64, wave int) {
	if d.ActiveCount() >= d.tun.MaxActiveFormations {
		return
	}
	// Don't pour a large group into an already-saturated arena.
	if d.ActiveCount() > 0 {
		popCap := d.pop.PopulationCap()
		if popCap > 0 && float64(d.pop.PopulationCount()) > d.tun.PopulationGateRatio*float64(popCap) {
			return
		}
	}

	patternID, ok := d.patterns.PickForWave(wave, d.rng)
	if !ok {
		return
	}
	meta, ok := d.patterns.Metadata(patternID)
	if !ok || meta.EnemyCount <= 0 {
		d.log.Warn("skipping spawn: malformed pattern", "pattern", patternID)
		return
	}

	// Off-screen spawn point on a ring around the player.
	angle := d.rng.Float64() * 2 * math.Pi
	cx := playerX + math.Cos(angle)*d.tun.SpawnRadius
	cy := playerY + math.Sin(angle)*d.tun.SpawnRadius

	f := &Formation{
		ID:            uuid.New(),
		PatternID:     patternID,
		CenterX:       cx,
		CenterY:       cy,
		Active:        true,
		meta:          meta,
		designedCount: meta.EnemyCount,
		lastSlots:     make([]Vec2, meta.EnemyCount),
	}

	slots := d.patterns.Slots(patternID, cx, cy, 0, 0)
	for i := 0; i < meta.EnemyCount; i++ {
		sx, sy := cx, cy
		var leader bool
		if i < len(slots) {
			sx, sy = slots[i].X, slots[i].Y
			leader = slots[i].IsLeader
		}
		m := d.pop.SpawnMember(sx, sy)
		if m == nil {
			continue // population cap reached mid-spawn
		}
		// Assignment clears any constellation marker: formation wins.
		m.JoinFormation(f.ID, i, leader)
		f.Members = append(f.Members, m)
		f.lastSlots[i] = Vec2{X: sx, Y: sy}
	}

	// A formation that got no members is broken, not active-but-empty.
	if len(f.Members) == 0 {
		d.log.Debug("spawn produced empty formation", "pattern", patternID)
		return
	}

	d.formations = append(d.formations, f)
	d.sink.FormationFormed(FormationFormedEvent{
		FormationID: f.ID,
		PatternID:   f.PatternID,
		Tick:        tick,
		CenterX:     f.CenterX,
		CenterY:     f.CenterY,
		MemberIDs:   f.liveMemberIDs(),
	})
}

// updateFormation advances one active formation by dt and deposits slot
// steering into each live member's force unit.
func (d *FormationDirector) updateFormation(f *Formation, tick int, dt, playerX, playerY float64) {
	f.Time += dt

	dx := playerX - f.CenterX
	dy := playerY - f.CenterY
	dist := math.Hypot(dx, dy)

	// Proximity ratio: 0 at twice break distance, 1 at break distance. Scales
	// both spin and closing speed so arrival feels like acceleration rather
	// than a discrete phase flip.
	bd := f.meta.BreakDistance
	ratio := 0.0
	if bd > 0 {
		ratio = (2*bd - dist) / bd
		if ratio < 0 {
			ratio = 0
		} else if ratio > 1 {
			ratio = 1
		}
	}

	if dist <= bd {
		d.breakFormation(f, tick, BreakReachedTarget)
		return
	}

	speed := f.meta.MoveSpeed * (1 + ratio*d.tun.CloseSpeedBoost)
	if dist > 1e-9 {
		f.CenterX += dx / dist * speed * dt
		f.CenterY += dy / dist * speed * dt
	}
	f.Rotation += f.meta.RotationSpeed * (1 + ratio*d.tun.CloseSpinBoost) * dt

	// Prune dead members, swap-with-last. Slot assignment survives removal
	// because it lives on the membership marker, not on slice order.
	for i := 0; i < len(f.Members); {
		if !f.Members[i].IsDead() {
			i++
			continue
		}
		last := len(f.Members) - 1
		f.Members[i] = f.Members[last]
		f.Members[last] = nil
		f.Members = f.Members[:last]
	}

	if len(f.Members) < f.minViable() {
		d.breakFormation(f, tick, BreakMembershipCollapsed)
		return
	}

	slots := d.patterns.Slots(f.PatternID, f.CenterX, f.CenterY, f.Rotation, f.Time)
	for i := range slots {
		if i < len(f.lastSlots) {
			f.lastSlots[i] = Vec2{X: slots[i].X, Y: slots[i].Y}
		}
	}

	for _, m := range f.Members {
		slot, ok := f.slotFor(m)
		if !ok {
			continue
		}
		mx, my := m.Pos()
		// Proportional pursuit: the correction shrinks as the member closes
		// on its slot, which is what keeps slot-seeking from oscillating.
		m.Unit().AddForce(ForceFormation, (slot.X-mx)*d.tun.SlotGain, (slot.Y-my)*d.tun.SlotGain)
	}
}

// slotFor resolves a member's current slot target, falling back to the last
// known slot when the provider returned a short list.
func (f *Formation) slotFor(m *Enemy) (Vec2, bool) {
	idx := m.Membership().SlotIndex
	if idx < 0 || idx >= len(f.lastSlots) {
		return Vec2{}, false
	}
	return f.lastSlots[idx], true
}

// breakFormation runs the Break transition: deactivate, strip every still-
// alive member's marker in the same tick, emit the broken event. The record
// itself is dropped by the next sweep.
func (d *FormationDirector) breakFormation(f *Formation, tick int, reason BreakReason) {
	if !f.Active {
		return
	}
	f.Active = false
	ids := f.liveMemberIDs()
	for _, m := range f.Members {
		if !m.IsDead() {
			m.LeaveGroup()
		}
	}
	d.sink.FormationBroken(FormationBrokenEvent{
		FormationID: f.ID,
		PatternID:   f.PatternID,
		Tick:        tick,
		CenterX:     f.CenterX,
		CenterY:     f.CenterY,
		MemberIDs:   ids,
		Reason:      reason,
	})
}

// Reset synchronously breaks every active formation and clears the live set.
// The only external cancel path the subsystem has.
func (d *FormationDirector) Reset(tick int) {
	for _, f := range d.formations {
		if f.Active {
			d.breakFormation(f, tick, BreakDirectorReset)
		}
	}
	d.formations = d.formations[:0]
}
