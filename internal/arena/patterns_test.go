package arena

import (
	"math"
	"math/rand"
	"os"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustLibrary(t *testing.T) *PatternLibrary {
	t.Helper()
	pl, err := NewPatternLibrary()
	if err != nil {
		t.Fatalf("embedded library: %v", err)
	}
	return pl
}

func TestPatternLibrary_EmbeddedSet(t *testing.T) {
	pl := mustLibrary(t)
	want := []string{"cross", "line", "ring", "spiral", "wedge"}
	got := pl.IDs()
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}

func TestAddJSON_RejectsMissingEnemyCount(t *testing.T) {
	pl := mustLibrary(t)
	err := pl.AddJSON([]byte(`{"id":"bad","shape":"ring","breakDistance":100,"moveSpeed":50,"rotationSpeed":0}`))
	if err == nil {
		t.Fatal("schema must reject a pattern without enemyCount")
	}
}

func TestAddJSON_RejectsUnknownShape(t *testing.T) {
	pl := mustLibrary(t)
	err := pl.AddJSON([]byte(`{"id":"bad","shape":"blob","enemyCount":5,"breakDistance":100,"moveSpeed":50,"rotationSpeed":0}`))
	if err == nil {
		t.Fatal("schema must reject an unknown shape")
	}
}

func TestAddJSON_RejectsMalformedJSON(t *testing.T) {
	pl := mustLibrary(t)
	if err := pl.AddJSON([]byte(`{"id":`)); err == nil {
		t.Fatal("truncated JSON must be rejected")
	}
}

func TestMetadata_KnownAndUnknown(t *testing.T) {
	pl := mustLibrary(t)
	meta, ok := pl.Metadata("ring")
	if !ok || meta.EnemyCount != 12 || meta.BreakDistance != 160 {
		t.Fatalf("ring metadata = %+v, %v", meta, ok)
	}
	if _, ok := pl.Metadata("no-such-pattern"); ok {
		t.Fatal("unknown pattern must report ok=false")
	}
}

func TestSlots_CountMatchesEnemyCount(t *testing.T) {
	pl := mustLibrary(t)
	for _, id := range pl.IDs() {
		meta, _ := pl.Metadata(id)
		slots := pl.Slots(id, 100, 100, 0.5, 2.0)
		if len(slots) != meta.EnemyCount {
			t.Fatalf("%s: %d slots, want %d", id, len(slots), meta.EnemyCount)
		}
	}
}

func TestSlots_ExactlyOneLeader(t *testing.T) {
	pl := mustLibrary(t)
	for _, id := range pl.IDs() {
		leaders := 0
		for _, s := range pl.Slots(id, 0, 0, 0, 0) {
			if s.IsLeader {
				leaders++
			}
		}
		if leaders != 1 {
			t.Fatalf("%s: %d leader slots, want 1", id, leaders)
		}
	}
}

func TestSlots_UnknownPatternReturnsNil(t *testing.T) {
	pl := mustLibrary(t)
	if slots := pl.Slots("no-such-pattern", 0, 0, 0, 0); slots != nil {
		t.Fatalf("unknown pattern slots = %v, want nil", slots)
	}
}

func TestRingSlots_RadiusFollowsPulse(t *testing.T) {
	pl := mustLibrary(t)
	// ring.json: radius 120, pulse amplitude 0.15 rate 1.2.
	tNow := 1.7
	wantR := 120 * (1 + 0.15*math.Sin(tNow*1.2))
	for _, s := range pl.Slots("ring", 50, -30, 0.8, tNow) {
		r := math.Hypot(s.X-50, s.Y+30)
		if math.Abs(r-wantR) > 1e-9 {
			t.Fatalf("ring slot radius %v, want %v", r, wantR)
		}
	}
}

func TestRingSlots_RotationMovesSlots(t *testing.T) {
	pl := mustLibrary(t)
	a := pl.Slots("ring", 0, 0, 0, 0)
	b := pl.Slots("ring", 0, 0, 0.3, 0)
	if a[0].X == b[0].X && a[0].Y == b[0].Y {
		t.Fatal("rotation must move ring slots")
	}
}

func TestWedgeSlots_TrailBehindHeading(t *testing.T) {
	pl := mustLibrary(t)
	// Heading 0 (east): all non-leader slots must sit west of the tip.
	slots := pl.Slots("wedge", 0, 0, 0, 0)
	for i, s := range slots[1:] {
		if s.X >= 0 {
			t.Fatalf("wedge slot %d should trail the tip, got x=%v", i+1, s.X)
		}
	}
}

func TestPickForWave_RespectsMinWave(t *testing.T) {
	pl := mustLibrary(t)
	rng := rand.New(rand.NewSource(3))
	// spiral has minWave 4; it must never be picked on wave 1.
	for i := 0; i < 200; i++ {
		id, ok := pl.PickForWave(1, rng)
		if !ok {
			t.Fatal("wave 1 must have eligible patterns")
		}
		if id == "spiral" || id == "cross" || id == "wedge" {
			t.Fatalf("pattern %s picked before its minWave", id)
		}
	}
}

func TestPickForWave_NoEligiblePatterns(t *testing.T) {
	pl := &PatternLibrary{defs: map[string]PatternDef{}}
	if _, ok := pl.PickForWave(1, rand.New(rand.NewSource(1))); ok {
		t.Fatal("empty library must report ok=false")
	}
}

func TestLoadDir_MergesAndReportsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/extra.json",
		`{"id":"arrow","shape":"wedge","enemyCount":5,"breakDistance":90,"moveSpeed":80,"rotationSpeed":0,"spacing":26}`)
	pl := mustLibrary(t)
	if err := pl.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if _, ok := pl.Metadata("arrow"); !ok {
		t.Fatal("merged pattern not found")
	}

	writeFile(t, dir+"/bad.json", `{"id":"bad"}`)
	if err := pl.LoadDir(dir); err == nil {
		t.Fatal("LoadDir must surface schema failures")
	}
}
