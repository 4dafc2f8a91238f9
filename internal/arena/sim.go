package arena

import (
	"log/slog"
	"math/rand"
)

// Simulation owns the arena state and runs the cooperative tick loop:
// director first (formation deposits and membership mutations), then the
// local/collision/external producers, then exactly one weight update and net
// force per enemy, then integration. Single-threaded by design; nothing in
// here may block or spawn goroutines.
type Simulation struct {
	tun Tuning
	log *slog.Logger
	rng *rand.Rand

	Enemies []*Enemy

	director   *FormationDirector
	flock      *FlockController
	collisions *CollisionResolver
	drift      *DriftField

	playerX, playerY float64
	wave             int
	tick             int
	elapsed          float64
	nextEnemyID      int
}

// NewSimulation wires the core together. sink may be nil (events discarded).
func NewSimulation(tun Tuning, patterns PatternProvider, sink EventSink, seed int64, log *slog.Logger) *Simulation {
	if log == nil {
		log = slog.Default()
	}
	s := &Simulation{
		tun:     tun,
		log:     log,
		rng:     rand.New(rand.NewSource(seed)),
		playerX: tun.ArenaWidth / 2,
		playerY: tun.ArenaHeight / 2,
		wave:    1,
	}
	s.director = NewFormationDirector(patterns, s, sink, &s.tun, s.rng, log)
	s.flock = NewFlockController(tun.Flock)
	s.collisions = NewCollisionResolver(tun.Collision)
	s.drift = NewDriftField(tun.Drift, seed)
	return s
}

// Director exposes the formation director for inspection and debug output.
func (s *Simulation) Director() *FormationDirector { return s.director }

// Tuning returns the simulation's tuning values.
func (s *Simulation) Tuning() Tuning { return s.tun }

func (s *Simulation) Tick() int        { return s.tick }
func (s *Simulation) Elapsed() float64 { return s.elapsed }

// SetPlayer moves the steering target all formations close on.
func (s *Simulation) SetPlayer(x, y float64) {
	s.playerX = x
	s.playerY = y
}

// Player returns the current target position.
func (s *Simulation) Player() (float64, float64) { return s.playerX, s.playerY }

// SetWave sets the progression signal used for pattern selection.
func (s *Simulation) SetWave(wave int) { s.wave = wave }

// Wave returns the current wave index.
func (s *Simulation) Wave() int { return s.wave }

// SpawnMember implements PopulationSource for the director. Returns nil once
// the global population cap is reached.
func (s *Simulation) SpawnMember(x, y float64) *Enemy {
	return s.SpawnFree(x, y)
}

// SpawnFree creates an independent enemy at (x, y), subject to the global
// cap. The enemy starts with no group membership.
func (s *Simulation) SpawnFree(x, y float64) *Enemy {
	if s.PopulationCount() >= s.tun.PopulationCap {
		return nil
	}
	e := NewEnemy(s.nextEnemyID, x, y, s.tun.ManagedLocalWeight, s.log)
	s.nextEnemyID++
	s.Enemies = append(s.Enemies, e)
	return e
}

// PopulationCount implements PopulationSource: live enemies only.
func (s *Simulation) PopulationCount() int {
	n := 0
	for _, e := range s.Enemies {
		if !e.IsDead() {
			n++
		}
	}
	return n
}

// PopulationCap implements PopulationSource.
func (s *Simulation) PopulationCap() int { return s.tun.PopulationCap }

// EnemyByID returns the enemy with the given id, or nil.
func (s *Simulation) EnemyByID(id int) *Enemy {
	for _, e := range s.Enemies {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// Step advances the simulation one tick of dt seconds.
func (s *Simulation) Step(dt float64) {
	s.tick++
	s.elapsed += dt

	// 1. Formation director: deposits formation-source forces and performs
	//    all membership mutations for this tick.
	s.director.Update(s.tick, dt, s.playerX, s.playerY, s.wave)

	// 2. Remaining producers.
	s.flock.Apply(s.Enemies)
	s.collisions.Apply(s.Enemies)
	s.drift.Apply(s.Enemies, s.elapsed)

	// 3. Arbitration + integration. UpdateWeights sees the membership state
	//    this very tick, so a break above already restores full local weight
	//    here, with no one-tick lag.
	for _, e := range s.Enemies {
		if e.IsDead() {
			continue
		}
		unit := e.Unit()
		unit.UpdateWeights(e.Membership())
		net := unit.ComputeNetForce()
		e.Integrate(net.X, net.Y, dt)
		unit.Reset()
	}

	// 4. Drop dead enemies, swap-with-last.
	for i := 0; i < len(s.Enemies); {
		if !s.Enemies[i].IsDead() {
			i++
			continue
		}
		last := len(s.Enemies) - 1
		s.Enemies[i] = s.Enemies[last]
		s.Enemies[last] = nil
		s.Enemies = s.Enemies[:last]
	}
}

// Reset synchronously breaks every active formation and clears the arena.
// Tick and elapsed time keep counting; the subsystem has no other notion of
// restart.
func (s *Simulation) Reset() {
	s.director.Reset(s.tick)
	s.Enemies = s.Enemies[:0]
}
