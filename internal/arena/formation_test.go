package arena

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

// stubProvider is a minimal PatternProvider for director tests: one pattern,
// slots laid out in a horizontal row from the center.
type stubProvider struct {
	meta   PatternMeta
	metaOK bool
	pickID string
	// slotsFn overrides the default row layout when set.
	slotsFn func(cx, cy, rotation, t float64) []Slot
}

func (p *stubProvider) Metadata(string) (PatternMeta, bool) {
	return p.meta, p.metaOK
}

func (p *stubProvider) Slots(_ string, cx, cy, rotation, t float64) []Slot {
	if p.slotsFn != nil {
		return p.slotsFn(cx, cy, rotation, t)
	}
	slots := make([]Slot, p.meta.EnemyCount)
	for i := range slots {
		slots[i] = Slot{X: cx + float64(i)*30, Y: cy, IsLeader: i == 0}
	}
	return slots
}

func (p *stubProvider) PickForWave(int, *rand.Rand) (string, bool) {
	return p.pickID, p.pickID != ""
}

// stubPop hands out fresh enemies up to a cap. Count can be overridden to
// fake a crowded arena.
type stubPop struct {
	count  int
	cap_   int
	nextID int
	preset []*Enemy
}

func (p *stubPop) SpawnMember(x, y float64) *Enemy {
	if p.count >= p.cap_ {
		return nil
	}
	var e *Enemy
	if len(p.preset) > 0 {
		e = p.preset[0]
		p.preset = p.preset[1:]
		e.SetPos(x, y)
	} else {
		e = NewEnemy(p.nextID, x, y, 0.35, nil)
		p.nextID++
	}
	p.count++
	return e
}

func (p *stubPop) PopulationCount() int { return p.count }
func (p *stubPop) PopulationCap() int   { return p.cap_ }

// recordSink captures lifecycle events for assertions.
type recordSink struct {
	formed []FormationFormedEvent
	broken []FormationBrokenEvent
}

func (rs *recordSink) FormationFormed(ev FormationFormedEvent) { rs.formed = append(rs.formed, ev) }
func (rs *recordSink) FormationBroken(ev FormationBrokenEvent) { rs.broken = append(rs.broken, ev) }

func newTestDirector(p *stubProvider, pop *stubPop, sink *recordSink, mutate func(*Tuning)) *FormationDirector {
	tun := DefaultTuning()
	tun.SpawnIntervalSec = 1.0
	tun.SpawnRadius = 520
	if mutate != nil {
		mutate(&tun)
	}
	return NewFormationDirector(p, pop, sink, &tun, rand.New(rand.NewSource(7)), nil)
}

func tenPattern() *stubProvider {
	return &stubProvider{
		meta:   PatternMeta{EnemyCount: 10, BreakDistance: 160, MoveSpeed: 50, RotationSpeed: 0},
		metaOK: true,
		pickID: "row",
	}
}

func TestDirector_SpawnCreatesActiveFormation(t *testing.T) {
	p := tenPattern()
	pop := &stubPop{cap_: 100}
	sink := &recordSink{}
	d := newTestDirector(p, pop, sink, nil)

	d.Update(1, 1.0, 0, 0, 1) // spawn timer fires on the first whole second

	if d.ActiveCount() != 1 {
		t.Fatalf("active formations = %d, want 1", d.ActiveCount())
	}
	if len(sink.formed) != 1 {
		t.Fatalf("formed events = %d, want 1", len(sink.formed))
	}
	f := d.Formations()[0]
	if len(f.Members) != 10 {
		t.Fatalf("members = %d, want 10", len(f.Members))
	}
	for i, m := range f.Members {
		mm := m.Membership()
		if mm.Kind != MemberOfFormation || mm.FormationID != f.ID {
			t.Fatalf("member %d: membership %+v not bound to formation", i, mm)
		}
	}
	if !f.Members[0].Membership().IsLeader {
		t.Fatal("slot 0 member should carry the leader flag")
	}
}

func TestDirector_SpawnClearsConstellationMarkers(t *testing.T) {
	p := tenPattern()
	pre := make([]*Enemy, 10)
	for i := range pre {
		pre[i] = NewEnemy(100+i, 0, 0, 0.35, nil)
		pre[i].JoinConstellation(uuid.New())
	}
	pop := &stubPop{cap_: 100, preset: pre}
	d := newTestDirector(p, pop, &recordSink{}, nil)

	d.Update(1, 1.0, 0, 0, 1)

	for i, e := range pre {
		if e.Membership().Kind != MemberOfFormation {
			t.Fatalf("preset enemy %d: membership %v, want formation (constellation must be cleared at assignment)",
				i, e.Membership().Kind)
		}
	}
}

func TestDirector_SpawnSuppressedNearPopulationCap(t *testing.T) {
	p := tenPattern()
	pop := &stubPop{cap_: 100}
	sink := &recordSink{}
	d := newTestDirector(p, pop, sink, nil)

	d.Update(1, 1.0, 0, 0, 1)
	if d.ActiveCount() != 1 {
		t.Fatalf("setup: active = %d, want 1", d.ActiveCount())
	}

	pop.count = 85 // 85% of cap, above the 80% gate
	d.Update(2, 1.0, 0, 0, 1)
	if d.ActiveCount() != 1 {
		t.Fatalf("spawn not suppressed at 85%% population: active = %d", d.ActiveCount())
	}

	pop.count = 40 // back under the gate
	d.Update(3, 1.0, 0, 0, 1)
	if d.ActiveCount() != 2 {
		t.Fatalf("spawn should resume under the gate: active = %d", d.ActiveCount())
	}
}

func TestDirector_SpawnRespectsMaxActive(t *testing.T) {
	p := tenPattern()
	pop := &stubPop{cap_: 1000}
	d := newTestDirector(p, pop, &recordSink{}, func(tun *Tuning) {
		tun.MaxActiveFormations = 1
	})

	d.Update(1, 1.0, 0, 0, 1)
	d.Update(2, 1.0, 0, 0, 1)
	if d.ActiveCount() != 1 {
		t.Fatalf("active = %d, want 1 (ceiling)", d.ActiveCount())
	}
}

func TestDirector_MalformedPatternSkipsSpawn(t *testing.T) {
	p := &stubProvider{metaOK: false, pickID: "broken"}
	sink := &recordSink{}
	d := newTestDirector(p, &stubPop{cap_: 100}, sink, nil)

	d.Update(1, 1.0, 0, 0, 1)

	if d.ActiveCount() != 0 || len(sink.formed) != 0 {
		t.Fatal("malformed pattern must not produce a formation")
	}
}

func TestDirector_ZeroMemberSpawnTreatedAsBroken(t *testing.T) {
	p := tenPattern()
	sink := &recordSink{}
	d := newTestDirector(p, &stubPop{cap_: 0}, sink, nil) // cap exhausted

	d.Update(1, 1.0, 0, 0, 1)

	if len(d.Formations()) != 0 {
		t.Fatal("empty formation must not enter the live set")
	}
	if len(sink.formed) != 0 {
		t.Fatal("empty formation must not announce itself")
	}
}

func TestDirector_MinimumViability(t *testing.T) {
	p := tenPattern()
	pop := &stubPop{cap_: 100}
	sink := &recordSink{}
	// Keep the formation far from the target so only membership can break it.
	d := newTestDirector(p, pop, sink, func(tun *Tuning) {
		tun.SpawnRadius = 5000
	})
	d.Update(1, 1.0, 0, 0, 1)
	f := d.Formations()[0]

	// Kill down to 3 live members (30% of 10): must stay active.
	for i := 0; i < 7; i++ {
		killOneLive(f)
		d.Update(2+i, 0.016, 0, 0, 1)
		if !f.Active {
			t.Fatalf("formation broke at %d live members; must stay active at >= 3", f.LiveMemberCount())
		}
	}
	if f.LiveMemberCount() != 3 {
		t.Fatalf("setup: live = %d, want 3", f.LiveMemberCount())
	}

	// One more death takes it under the floor.
	killOneLive(f)
	d.Update(20, 0.016, 0, 0, 1)
	if f.Active {
		t.Fatalf("formation still active at %d live members", f.LiveMemberCount())
	}
	if len(sink.broken) != 1 || sink.broken[0].Reason != BreakMembershipCollapsed {
		t.Fatalf("broken events = %+v, want one membership_collapsed", sink.broken)
	}
	for _, m := range f.Members {
		if !m.IsDead() && m.Membership().Kind != MemberOfNothing {
			t.Fatal("surviving members must revert to independent behaviour on break")
		}
	}
}

func killOneLive(f *Formation) {
	for _, m := range f.Members {
		if !m.IsDead() {
			m.Kill()
			return
		}
	}
}

func TestDirector_BreakDistanceTermination(t *testing.T) {
	p := tenPattern() // breakDistance 160
	sink := &recordSink{}
	// Spawn ring radius under the break distance: the formation is born
	// inside it, so the very next update must break it.
	d := newTestDirector(p, &stubPop{cap_: 100}, sink, func(tun *Tuning) {
		tun.SpawnRadius = 100
	})

	d.Update(1, 1.0, 0, 0, 1)

	if d.ActiveCount() != 0 {
		t.Fatal("formation inside break distance must break on its next update")
	}
	if len(sink.broken) != 1 || sink.broken[0].Reason != BreakReachedTarget {
		t.Fatalf("broken events = %+v, want one reached_target", sink.broken)
	}
	// Live set is swept the same tick.
	if len(d.Formations()) != 0 {
		t.Fatal("broken formation must leave the live set on the sweep")
	}
}

func TestDirector_SlotSteeringPointsTowardSlot(t *testing.T) {
	p := tenPattern()
	pop := &stubPop{cap_: 100}
	d := newTestDirector(p, pop, &recordSink{}, func(tun *Tuning) {
		tun.SpawnRadius = 5000
	})
	d.Update(1, 1.0, 0, 0, 1)
	f := d.Formations()[0]

	near := f.Members[1]
	far := f.Members[2]
	nearSlot, _ := f.slotFor(near)
	farSlot, _ := f.slotFor(far)
	near.SetPos(nearSlot.X-40, nearSlot.Y)
	far.SetPos(farSlot.X-400, farSlot.Y)
	near.Unit().Reset()
	far.Unit().Reset()

	d.Update(2, 0.016, 0, 0, 1)

	for _, m := range []*Enemy{near, far} {
		slot, ok := f.slotFor(m)
		if !ok {
			t.Fatal("live member must resolve a slot")
		}
		mx, my := m.Pos()
		force := m.Unit().Force(ForceFormation)
		dot := force.X*(slot.X-mx) + force.Y*(slot.Y-my)
		if dot <= 0 {
			t.Fatalf("member %d: formation force %+v does not point toward slot", m.ID(), force)
		}
	}
	if near.Unit().Force(ForceFormation).Mag() >= far.Unit().Force(ForceFormation).Mag() {
		t.Fatal("closer member must receive the smaller correction")
	}
}

func TestDirector_ShortSlotListFallsBackToLastKnown(t *testing.T) {
	p := tenPattern()
	pop := &stubPop{cap_: 100}
	d := newTestDirector(p, pop, &recordSink{}, func(tun *Tuning) {
		tun.SpawnRadius = 5000
	})
	d.Update(1, 1.0, 0, 0, 1)
	f := d.Formations()[0]

	// Provider degrades to a 3-slot answer; members 3..9 keep steering
	// toward their last known slots.
	p.slotsFn = func(cx, cy, _, _ float64) []Slot {
		return []Slot{{X: cx}, {X: cx + 30}, {X: cx + 60}}
	}
	tail := f.Members[9]
	lastSlot, _ := f.slotFor(tail)
	tail.SetPos(lastSlot.X-100, lastSlot.Y)
	tail.Unit().Reset()

	d.Update(2, 0.016, 0, 0, 1)

	if force := tail.Unit().Force(ForceFormation); force.X <= 0 {
		t.Fatalf("member without a fresh slot must steer toward its last known slot, got %+v", force)
	}
}

func TestDirector_ClosingFormationAccelerates(t *testing.T) {
	p := tenPattern()
	d := newTestDirector(p, &stubPop{cap_: 100}, &recordSink{}, func(tun *Tuning) {
		tun.SpawnRadius = 400 // inside 2× break distance, so the ratio is live
	})
	d.Update(1, 1.0, 0, 0, 1)
	f := d.Formations()[0]

	prevX, prevY := f.CenterX, f.CenterY
	var prevStep float64
	for tick := 2; f.Active && tick < 400; tick++ {
		d.Update(tick, 0.016, 0, 0, 1)
		step := math.Hypot(f.CenterX-prevX, f.CenterY-prevY)
		if f.Active && prevStep > 0 && step+1e-9 < prevStep {
			t.Fatalf("closing formation slowed down: step %v after %v", step, prevStep)
		}
		prevX, prevY = f.CenterX, f.CenterY
		prevStep = step
	}
	if f.Active {
		t.Fatal("formation never reached its break distance")
	}
}

func TestDirector_ResetBreaksEverything(t *testing.T) {
	p := tenPattern()
	pop := &stubPop{cap_: 1000}
	sink := &recordSink{}
	d := newTestDirector(p, pop, sink, nil)
	d.Update(1, 1.0, 0, 0, 1)
	d.Update(2, 1.0, 0, 0, 1)
	if d.ActiveCount() != 2 {
		t.Fatalf("setup: active = %d, want 2", d.ActiveCount())
	}
	members := append([]*Enemy{}, d.Formations()[0].Members...)
	members = append(members, d.Formations()[1].Members...)

	d.Reset(3)

	if len(d.Formations()) != 0 {
		t.Fatal("Reset must clear the live set")
	}
	if len(sink.broken) != 2 {
		t.Fatalf("broken events = %d, want 2", len(sink.broken))
	}
	for _, ev := range sink.broken {
		if ev.Reason != BreakDirectorReset {
			t.Fatalf("reason = %v, want director_reset", ev.Reason)
		}
	}
	for _, m := range members {
		if m.Membership().Kind != MemberOfNothing {
			t.Fatal("Reset must strip every membership marker")
		}
	}
}
