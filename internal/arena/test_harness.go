package arena

import (
	"fmt"
	"log/slog"
)

// TestSim is a headless harness used by tests and the headless-report binary.
// It wraps a Simulation with deterministic seeding, a structured SimLog, and
// an event sink that records formation lifecycle transitions.
type TestSim struct {
	Sim      *Simulation
	SimLog   *SimLog
	Patterns *PatternLibrary
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // seed, tuning, verbose, extra patterns; applied first
	simOptWorld                      // player position, enemies; applied after the sim exists
)

// SimOption is a builder function applied to a TestSim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*testSimConfig, *TestSim)
}

type testSimConfig struct {
	seed    int64
	tun     Tuning
	verbose bool
	extra   [][]byte
	sinks   []EventSink
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{simOptInfra, func(cfg *testSimConfig, _ *TestSim) {
		cfg.seed = seed
	}}
}

// WithTuning replaces the default tuning wholesale.
func WithTuning(t Tuning) SimOption {
	return SimOption{simOptInfra, func(cfg *testSimConfig, _ *TestSim) {
		cfg.tun = t
	}}
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(cfg *testSimConfig, _ *TestSim) {
		cfg.verbose = v
	}}
}

// WithPatternJSON adds a raw pattern definition on top of the embedded set.
// Invalid definitions panic: a broken test fixture is a test bug.
func WithPatternJSON(raw string) SimOption {
	return SimOption{simOptInfra, func(cfg *testSimConfig, _ *TestSim) {
		cfg.extra = append(cfg.extra, []byte(raw))
	}}
}

// WithEventSink attaches an additional sink alongside the SimLog recorder.
func WithEventSink(sink EventSink) SimOption {
	return SimOption{simOptInfra, func(cfg *testSimConfig, _ *TestSim) {
		cfg.sinks = append(cfg.sinks, sink)
	}}
}

// WithPlayer places the steering target.
func WithPlayer(x, y float64) SimOption {
	return SimOption{simOptWorld, func(_ *testSimConfig, ts *TestSim) {
		ts.Sim.SetPlayer(x, y)
	}}
}

// WithFreeEnemy spawns one independent enemy at (x, y).
func WithFreeEnemy(x, y float64) SimOption {
	return SimOption{simOptWorld, func(_ *testSimConfig, ts *TestSim) {
		ts.Sim.SpawnFree(x, y)
	}}
}

// simLogSink records formation lifecycle events into a SimLog.
type simLogSink struct {
	log *SimLog
}

func (s *simLogSink) FormationFormed(ev FormationFormedEvent) {
	s.log.Add(ev.Tick, "F"+ev.FormationID.String()[:4], "formation", "formed",
		fmt.Sprintf("%s members=%d at (%.0f,%.0f)", ev.PatternID, len(ev.MemberIDs), ev.CenterX, ev.CenterY),
		float64(len(ev.MemberIDs)))
}

func (s *simLogSink) FormationBroken(ev FormationBrokenEvent) {
	s.log.Add(ev.Tick, "F"+ev.FormationID.String()[:4], "formation", "broken",
		fmt.Sprintf("%s members=%d", ev.Reason, len(ev.MemberIDs)),
		float64(len(ev.MemberIDs)))
}

// NewTestSim constructs a TestSim from the given options in two ordered
// passes: infrastructure first, then world population.
func NewTestSim(opts ...SimOption) *TestSim {
	cfg := &testSimConfig{
		seed: 1,
		tun:  DefaultTuning(),
	}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.fn(cfg, nil)
		}
	}

	pl, err := NewPatternLibrary()
	if err != nil {
		panic(fmt.Sprintf("embedded pattern library: %v", err))
	}
	for _, raw := range cfg.extra {
		if err := pl.AddJSON(raw); err != nil {
			panic(fmt.Sprintf("test pattern: %v", err))
		}
	}

	ts := &TestSim{
		SimLog:   NewSimLog(cfg.verbose),
		Patterns: pl,
	}
	sink := FanoutSink{&simLogSink{log: ts.SimLog}}
	sink = append(sink, cfg.sinks...)
	ts.Sim = NewSimulation(cfg.tun, pl, sink, cfg.seed, slog.Default())

	for _, o := range opts {
		if o.kind == simOptWorld {
			o.fn(cfg, ts)
		}
	}
	return ts
}

// Dt returns the tick duration implied by the tuning.
func (ts *TestSim) Dt() float64 {
	return 1.0 / float64(ts.Sim.Tuning().TickRateHz)
}

// RunTicks advances the simulation n ticks.
func (ts *TestSim) RunTicks(n int) {
	dt := ts.Dt()
	for i := 0; i < n; i++ {
		ts.Sim.Step(dt)
		ts.logTick()
	}
}

// RunUntil advances the simulation up to maxTicks, stopping early if the
// predicate returns true. Returns the tick at which it was satisfied, or -1.
func (ts *TestSim) RunUntil(predicate func(*TestSim) bool, maxTicks int) int {
	dt := ts.Dt()
	for i := 0; i < maxTicks; i++ {
		ts.Sim.Step(dt)
		ts.logTick()
		if predicate(ts) {
			return ts.Sim.Tick()
		}
	}
	return -1
}

func (ts *TestSim) logTick() {
	tick := ts.Sim.Tick()
	ts.SimLog.AddVerbose(tick, "--", "population", "count",
		fmt.Sprintf("%d", ts.Sim.PopulationCount()), float64(ts.Sim.PopulationCount()))
	for _, f := range ts.Sim.Director().Formations() {
		ts.SimLog.AddVerbose(tick, "F"+f.ID.String()[:4], "formation", "state",
			fmt.Sprintf("%s center=(%.0f,%.0f) live=%d", f.PatternID, f.CenterX, f.CenterY, f.LiveMemberCount()),
			float64(f.LiveMemberCount()))
	}
}
