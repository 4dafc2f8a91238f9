package arena

import "testing"

func flockPair(dist float64) (*Enemy, *Enemy, []*Enemy) {
	a := NewEnemy(0, 100, 100, 0.35, nil)
	b := NewEnemy(1, 100+dist, 100, 0.35, nil)
	return a, b, []*Enemy{a, b}
}

func TestFlock_SeparationPushesApart(t *testing.T) {
	fc := NewFlockController(DefaultTuning().Flock)
	a, b, all := flockPair(10) // inside the protected range
	fc.Apply(all)

	fa := a.Unit().Force(ForceLocal)
	fb := b.Unit().Force(ForceLocal)
	if fa.X >= 0 {
		t.Fatalf("left enemy should be pushed left, got %+v", fa)
	}
	if fb.X <= 0 {
		t.Fatalf("right enemy should be pushed right, got %+v", fb)
	}
}

func TestFlock_CohesionPullsDistantNeighborsTogether(t *testing.T) {
	tun := DefaultTuning().Flock
	a, b, all := flockPair(60) // outside protected, inside visual range
	fc := NewFlockController(tun)
	fc.Apply(all)

	if fa := a.Unit().Force(ForceLocal); fa.X <= 0 {
		t.Fatalf("left enemy should be pulled toward the flock, got %+v", fa)
	}
	if fb := b.Unit().Force(ForceLocal); fb.X >= 0 {
		t.Fatalf("right enemy should be pulled toward the flock, got %+v", fb)
	}
}

func TestFlock_DepositsOnlyLocalSource(t *testing.T) {
	fc := NewFlockController(DefaultTuning().Flock)
	a, _, all := flockPair(10)
	fc.Apply(all)

	for _, src := range []ForceSource{ForceFormation, ForceConstellation, ForceCollision, ForceExternal} {
		if f := a.Unit().Force(src); f.X != 0 || f.Y != 0 {
			t.Fatalf("flocking leaked into %s: %+v", src, f)
		}
	}
}

func TestFlock_LoneEnemyGetsNoForce(t *testing.T) {
	fc := NewFlockController(DefaultTuning().Flock)
	a := NewEnemy(0, 100, 100, 0.35, nil)
	fc.Apply([]*Enemy{a})
	if f := a.Unit().Force(ForceLocal); f.X != 0 || f.Y != 0 {
		t.Fatalf("lone enemy force = %+v, want zero", f)
	}
}

func TestFlock_IgnoresDeadNeighbors(t *testing.T) {
	fc := NewFlockController(DefaultTuning().Flock)
	a, b, all := flockPair(10)
	b.Kill()
	fc.Apply(all)
	if f := a.Unit().Force(ForceLocal); f.X != 0 || f.Y != 0 {
		t.Fatalf("dead neighbor still contributes: %+v", f)
	}
}
