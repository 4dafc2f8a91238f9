package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/arena"
	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/spectate"
)

const (
	tickDt       = 1.0 / 60.0
	waveLength   = 30.0 // seconds per wave
	trickleEvery = 90   // ticks between free-enemy spawns
)

type app struct {
	sim *arena.Simulation
	rng *rand.Rand

	copiedUntil time.Time
}

func (a *app) Update() error {
	mx, my := ebiten.CursorPosition()
	a.sim.SetPlayer(float64(mx), float64(my))
	a.sim.SetWave(1 + int(a.sim.Elapsed()/waveLength))

	// Trickle independent enemies in from the edges so the flocking and
	// drift layers have something to act on between formations.
	tun := a.sim.Tuning()
	if a.sim.Tick()%trickleEvery == 0 && a.sim.PopulationCount() < tun.PopulationCap/2 {
		a.sim.SpawnFree(a.rng.Float64()*tun.ArenaWidth, -20)
	}

	a.sim.Step(tickDt)

	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		if err := clipboard.WriteAll(arena.BuildDebugReport(a.sim)); err == nil {
			a.copiedUntil = time.Now().Add(2 * time.Second)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.sim.Reset()
	}
	return nil
}

func (a *app) Draw(screen *ebiten.Image) {
	a.sim.Draw(screen)

	face := basicfont.Face7x13
	hud := fmt.Sprintf("tick=%d wave=%d pop=%d/%d formations=%d   [F1] copy report  [R] reset",
		a.sim.Tick(), a.sim.Wave(), a.sim.PopulationCount(), a.sim.PopulationCap(),
		a.sim.Director().ActiveCount())
	text.Draw(screen, hud, face, 8, 16, color.White)
	if time.Now().Before(a.copiedUntil) {
		text.Draw(screen, "debug report copied to clipboard", face, 8, 32,
			color.RGBA{R: 120, G: 255, B: 120, A: 255})
	}
}

func (a *app) Layout(outsideWidth, outsideHeight int) (int, int) {
	tun := a.sim.Tuning()
	return int(tun.ArenaWidth), int(tun.ArenaHeight)
}

func main() {
	var tuningPath string
	var patternDir string
	var listen string
	var seed int64

	flag.StringVar(&tuningPath, "tuning", "", "optional YAML tuning file")
	flag.StringVar(&patternDir, "patterns", "", "optional directory of extra pattern JSON files")
	flag.StringVar(&listen, "listen", "", "optional addr for the spectate websocket (e.g. :8790)")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "RNG seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	tun := arena.DefaultTuning()
	if tuningPath != "" {
		var err error
		if tun, err = arena.LoadTuning(tuningPath); err != nil {
			log.Fatal(err)
		}
	}

	patterns, err := arena.NewPatternLibrary()
	if err != nil {
		log.Fatal(err)
	}
	if patternDir != "" {
		if err := patterns.LoadDir(patternDir); err != nil {
			log.Fatal(err)
		}
	}

	var sink arena.EventSink = arena.NullSink{}
	if listen != "" {
		spect := spectate.NewServer(logger)
		sink = spect
		mux := http.NewServeMux()
		mux.Handle("/spectate", spect.Handler())
		go func() {
			logger.Info("spectate listening", "addr", listen)
			if err := http.ListenAndServe(listen, mux); err != nil {
				logger.Error("spectate server stopped", "err", err)
			}
		}()
	}

	a := &app{
		sim: arena.NewSimulation(tun, patterns, sink, seed, logger),
		rng: rand.New(rand.NewSource(seed)),
	}

	ebiten.SetWindowTitle("Galactic Ring Cannon: formation arena")
	ebiten.SetWindowSize(int(tun.ArenaWidth), int(tun.ArenaHeight))
	if err := ebiten.RunGame(a); err != nil {
		log.Fatal(err)
	}
}
