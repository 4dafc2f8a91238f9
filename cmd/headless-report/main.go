package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"

	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/arena"
	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/eventlog"
	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/recorder"
)

type runStats struct {
	runIndex int
	seed     int64

	formed          int
	broken          int
	reached         int // broken by reaching the player
	collapsed       int
	firstFormedTick int
	peakPopulation  int
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var dbPath string
	var eventsPath string

	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 7200, "ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&dbPath, "db", "", "optional SQLite telemetry path")
	flag.StringVar(&eventsPath, "events", "", "optional zstd JSONL event log path prefix")
	flag.Parse()

	if runs <= 0 || ticks <= 0 {
		fmt.Println("error: -runs and -ticks must be > 0")
		return
	}

	var db *recorder.DB
	if dbPath != "" {
		var err error
		if db, err = recorder.Open(dbPath); err != nil {
			log.Fatal(err)
		}
		defer db.Close()
	}

	fmt.Printf("=== Formation Arena Headless Report ===\n")
	fmt.Printf("runs=%d ticks=%d seed_base=%d seed_step=%d\n\n", runs, ticks, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats, err := runScenario(i+1, seed, ticks, db, eventsPath)
		if err != nil {
			log.Fatal(err)
		}
		all = append(all, stats)
		printRun(stats)
	}

	printAggregate(all, ticks)
}

// runScenario runs one closing-formations scenario: a stationary player at
// the arena center, waves advancing every 30 simulated seconds.
func runScenario(runIndex int, seed int64, ticks int, db *recorder.DB, eventsPath string) (runStats, error) {
	stats := runStats{runIndex: runIndex, seed: seed, firstFormedTick: -1}

	var sinks []arena.SimOption
	var recSink *recorder.Sink
	var elSink *eventlog.Sink
	var runID int64

	if db != nil {
		var err error
		if runID, err = db.BeginRun("closing-formations", seed); err != nil {
			return stats, err
		}
		recSink = db.NewSink(runID)
		sinks = append(sinks, arena.WithEventSink(recSink))
	}
	if eventsPath != "" {
		w, err := eventlog.New(fmt.Sprintf("%s-run%02d.jsonl.zst", eventsPath, runIndex))
		if err != nil {
			return stats, err
		}
		defer w.Close()
		elSink = eventlog.NewSink(w)
		sinks = append(sinks, arena.WithEventSink(elSink))
	}

	tun := arena.DefaultTuning()
	tun.SpawnIntervalSec = 4.0 // denser lifecycle sampling than the game default

	opts := append([]arena.SimOption{
		arena.WithSeed(seed),
		arena.WithTuning(tun),
		arena.WithPlayer(tun.ArenaWidth/2, tun.ArenaHeight/2),
	}, sinks...)
	ts := arena.NewTestSim(opts...)

	waveTicks := 30 * tun.TickRateHz
	for t := 0; t < ticks; t++ {
		ts.Sim.SetWave(1 + ts.Sim.Tick()/waveTicks)
		ts.RunTicks(1)
		if pop := ts.Sim.PopulationCount(); pop > stats.peakPopulation {
			stats.peakPopulation = pop
		}
		if db != nil && ts.Sim.Tick()%tun.TickRateHz == 0 {
			if err := db.RecordTickStats(runID, ts.Sim.Tick(), ts.Sim.PopulationCount(), ts.Sim.Director().ActiveCount()); err != nil {
				return stats, err
			}
		}
	}

	for _, e := range ts.SimLog.Filter("formation", "formed") {
		stats.formed++
		if stats.firstFormedTick < 0 {
			stats.firstFormedTick = e.Tick
		}
	}
	for _, e := range ts.SimLog.Filter("formation", "broken") {
		stats.broken++
		switch {
		case containsReason(e.Value, arena.BreakReachedTarget):
			stats.reached++
		case containsReason(e.Value, arena.BreakMembershipCollapsed):
			stats.collapsed++
		}
	}

	if recSink != nil && recSink.Err() != nil {
		return stats, recSink.Err()
	}
	if elSink != nil && elSink.Err() != nil {
		return stats, elSink.Err()
	}
	return stats, nil
}

func containsReason(value string, r arena.BreakReason) bool {
	return len(value) >= len(r.String()) && value[:len(r.String())] == r.String()
}

func printRun(s runStats) {
	fmt.Printf("run %d (seed=%d): formed=%d broken=%d (reached=%d collapsed=%d) first_formed=T%d peak_pop=%s\n",
		s.runIndex, s.seed, s.formed, s.broken, s.reached, s.collapsed,
		s.firstFormedTick, humanize.Comma(int64(s.peakPopulation)))
}

func printAggregate(all []runStats, ticks int) {
	var formed, broken, reached, collapsed int64
	for _, s := range all {
		formed += int64(s.formed)
		broken += int64(s.broken)
		reached += int64(s.reached)
		collapsed += int64(s.collapsed)
	}
	fmt.Printf("\n--- Aggregate over %d runs × %s ticks ---\n", len(all), humanize.Comma(int64(ticks)))
	fmt.Printf("formations formed:  %s\n", humanize.Comma(formed))
	fmt.Printf("formations broken:  %s (reached=%s collapsed=%s)\n",
		humanize.Comma(broken), humanize.Comma(reached), humanize.Comma(collapsed))
	if formed > 0 {
		fmt.Printf("reach rate:         %.0f%%\n", 100*float64(reached)/float64(formed))
	}
}
