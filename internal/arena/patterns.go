package arena

import (
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed patterns/*.json
var patternFS embed.FS

//go:embed pattern.schema.json
var patternSchemaSrc string

var patternSchema = jsonschema.MustCompileString("pattern.schema.json", patternSchemaSrc)

// Slot is one pattern-defined target position a formation member is steered
// toward. Kind is a free-form label for renderers ("tip", "arm", ...).
type Slot struct {
	X, Y     float64
	Kind     string
	IsLeader bool
}

// PatternMeta is the static metadata the director needs before spawning.
type PatternMeta struct {
	EnemyCount    int
	BreakDistance float64
	MoveSpeed     float64
	RotationSpeed float64
}

// PatternProvider supplies formation geometry. The director owns lifecycle
// and steering; the provider owns shape.
type PatternProvider interface {
	// Metadata returns static metadata for a pattern id. ok=false means the
	// pattern is unknown or malformed and must not be spawned.
	Metadata(patternID string) (PatternMeta, bool)
	// Slots returns the current ordered slot positions for the given center,
	// rotation and formation age. May return fewer slots than EnemyCount;
	// callers must tolerate that.
	Slots(patternID string, cx, cy, rotation, t float64) []Slot
	// PickForWave selects a pattern eligible for the given wave index.
	PickForWave(wave int, rng *rand.Rand) (string, bool)
}

// PulseDef animates a pattern's scale over formation time.
type PulseDef struct {
	Amplitude float64 `json:"amplitude"`
	Rate      float64 `json:"rate"`
}

// PatternDef is one shape definition as loaded from JSON.
type PatternDef struct {
	ID            string   `json:"id"`
	Shape         string   `json:"shape"`
	EnemyCount    int      `json:"enemyCount"`
	BreakDistance float64  `json:"breakDistance"`
	MoveSpeed     float64  `json:"moveSpeed"`
	RotationSpeed float64  `json:"rotationSpeed"`
	Radius        float64  `json:"radius"`
	Spacing       float64  `json:"spacing"`
	MinWave       int      `json:"minWave"`
	Pulse         PulseDef `json:"pulse"`
}

// PatternLibrary is the file-backed PatternProvider. The built-in shapes are
// embedded; LoadDir merges additional definitions from disk.
type PatternLibrary struct {
	defs  map[string]PatternDef
	order []string // sorted ids, for deterministic iteration
}

// NewPatternLibrary loads the embedded pattern set.
func NewPatternLibrary() (*PatternLibrary, error) {
	pl := &PatternLibrary{defs: make(map[string]PatternDef)}
	entries, err := patternFS.ReadDir("patterns")
	if err != nil {
		return nil, fmt.Errorf("embedded patterns: %w", err)
	}
	for _, ent := range entries {
		raw, err := patternFS.ReadFile("patterns/" + ent.Name())
		if err != nil {
			return nil, fmt.Errorf("embedded pattern %s: %w", ent.Name(), err)
		}
		if err := pl.AddJSON(raw); err != nil {
			return nil, fmt.Errorf("embedded pattern %s: %w", ent.Name(), err)
		}
	}
	return pl, nil
}

// AddJSON validates one pattern definition against the schema and adds it,
// replacing any existing definition with the same id.
func (pl *PatternLibrary) AddJSON(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := patternSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	var def PatternDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if _, exists := pl.defs[def.ID]; !exists {
		pl.order = append(pl.order, def.ID)
		sort.Strings(pl.order)
	}
	pl.defs[def.ID] = def
	return nil
}

// LoadDir merges every *.json pattern definition under dir. A malformed file
// aborts the load with an error naming the file; already-merged definitions
// are kept.
func (pl *PatternLibrary) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("pattern dir: %w", err)
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return fmt.Errorf("pattern %s: %w", ent.Name(), err)
		}
		if err := pl.AddJSON(raw); err != nil {
			return fmt.Errorf("pattern %s: %w", ent.Name(), err)
		}
	}
	return nil
}

// IDs returns all pattern ids in sorted order.
func (pl *PatternLibrary) IDs() []string {
	out := make([]string, len(pl.order))
	copy(out, pl.order)
	return out
}

// Metadata implements PatternProvider.
func (pl *PatternLibrary) Metadata(patternID string) (PatternMeta, bool) {
	def, ok := pl.defs[patternID]
	if !ok || def.EnemyCount <= 0 {
		return PatternMeta{}, false
	}
	return PatternMeta{
		EnemyCount:    def.EnemyCount,
		BreakDistance: def.BreakDistance,
		MoveSpeed:     def.MoveSpeed,
		RotationSpeed: def.RotationSpeed,
	}, true
}

// PickForWave implements PatternProvider: a uniform pick among patterns whose
// minWave has been reached.
func (pl *PatternLibrary) PickForWave(wave int, rng *rand.Rand) (string, bool) {
	var eligible []string
	for _, id := range pl.order {
		if pl.defs[id].MinWave <= wave {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return "", false
	}
	return eligible[rng.Intn(len(eligible))], true
}

// Slots implements PatternProvider.
func (pl *PatternLibrary) Slots(patternID string, cx, cy, rotation, t float64) []Slot {
	def, ok := pl.defs[patternID]
	if !ok || def.EnemyCount <= 0 {
		return nil
	}
	scale := 1.0
	if def.Pulse.Amplitude > 0 {
		scale += def.Pulse.Amplitude * math.Sin(t*def.Pulse.Rate)
	}
	switch def.Shape {
	case "ring":
		return ringSlots(def, cx, cy, rotation, scale)
	case "line":
		return lineSlots(def, cx, cy, rotation, scale)
	case "wedge":
		return wedgeSlots(def, cx, cy, rotation, scale)
	case "cross":
		return crossSlots(def, cx, cy, rotation, scale)
	case "spiral":
		return spiralSlots(def, cx, cy, rotation, scale)
	default:
		return nil
	}
}

func ringSlots(def PatternDef, cx, cy, rotation, scale float64) []Slot {
	n := def.EnemyCount
	slots := make([]Slot, n)
	r := def.Radius * scale
	for i := 0; i < n; i++ {
		a := rotation + 2*math.Pi*float64(i)/float64(n)
		slots[i] = Slot{
			X:        cx + math.Cos(a)*r,
			Y:        cy + math.Sin(a)*r,
			Kind:     "rim",
			IsLeader: i == 0,
		}
	}
	return slots
}

func lineSlots(def PatternDef, cx, cy, rotation, scale float64) []Slot {
	n := def.EnemyCount
	slots := make([]Slot, n)
	fx, fy := math.Cos(rotation), math.Sin(rotation)
	// Slot 0 sits at the center; the rest spread symmetrically ±1, ±2, ...
	for i := 0; i < n; i++ {
		off := float64((i+1)/2) * def.Spacing * scale
		if i%2 == 1 {
			off = -off
		}
		slots[i] = Slot{
			X:        cx + fx*off,
			Y:        cy + fy*off,
			Kind:     "rank",
			IsLeader: i == 0,
		}
	}
	return slots
}

func wedgeSlots(def PatternDef, cx, cy, rotation, scale float64) []Slot {
	n := def.EnemyCount
	slots := make([]Slot, n)
	fx, fy := math.Cos(rotation), math.Sin(rotation)
	rx, ry := -fy, fx // 90° clockwise from forward
	slots[0] = Slot{X: cx, Y: cy, Kind: "tip", IsLeader: true}
	for i := 1; i < n; i++ {
		depth := float64((i+1)/2) * def.Spacing * scale
		side := depth
		if i%2 == 1 {
			side = -side
		}
		slots[i] = Slot{
			X:    cx - fx*depth + rx*side,
			Y:    cy - fy*depth + ry*side,
			Kind: "flank",
		}
	}
	return slots
}

func crossSlots(def PatternDef, cx, cy, rotation, scale float64) []Slot {
	n := def.EnemyCount
	slots := make([]Slot, n)
	slots[0] = Slot{X: cx, Y: cy, Kind: "hub", IsLeader: true}
	for i := 1; i < n; i++ {
		arm := (i - 1) % 4
		step := float64((i-1)/4 + 1)
		a := rotation + float64(arm)*math.Pi/2
		d := step * def.Spacing * scale
		slots[i] = Slot{
			X:    cx + math.Cos(a)*d,
			Y:    cy + math.Sin(a)*d,
			Kind: "arm",
		}
	}
	return slots
}

func spiralSlots(def PatternDef, cx, cy, rotation, scale float64) []Slot {
	n := def.EnemyCount
	slots := make([]Slot, n)
	slots[0] = Slot{X: cx, Y: cy, Kind: "eye", IsLeader: true}
	for i := 1; i < n; i++ {
		a := rotation + float64(i)*2.4 // ≈ golden angle, keeps arms from aligning
		r := def.Radius * scale * float64(i) / float64(n-1)
		slots[i] = Slot{
			X:    cx + math.Cos(a)*r,
			Y:    cy + math.Sin(a)*r,
			Kind: "arm",
		}
	}
	return slots
}
