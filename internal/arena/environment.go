package arena

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// DriftField is the environment producer: a slowly-evolving noise field that
// deposits a gentle push under the external source. External is pinned at
// weight 1.0, so the field acts on steered and free enemies alike.
type DriftField struct {
	tun    DriftTuning
	noiseX opensimplex.Noise
	noiseY opensimplex.Noise
}

// NewDriftField seeds the two noise channels. The same seed always produces
// the same field, which the headless scenarios rely on.
func NewDriftField(tun DriftTuning, seed int64) *DriftField {
	return &DriftField{
		tun:    tun,
		noiseX: opensimplex.NewNormalized(seed),
		noiseY: opensimplex.NewNormalized(seed + 1),
	}
}

// ForceAt samples the drift force at a world position and time. Components
// are always finite and bounded by Strength.
func (df *DriftField) ForceAt(x, y, t float64) (float64, float64) {
	sx := x * df.tun.Scale
	sy := y * df.tun.Scale
	st := t * df.tun.TimeScale
	// Normalized noise is in [0,1]; recenter to [-1,1].
	fx := (df.noiseX.Eval3(sx, sy, st)*2 - 1) * df.tun.Strength
	fy := (df.noiseY.Eval3(sx, sy, st)*2 - 1) * df.tun.Strength
	return fx, fy
}

// Apply deposits the field's push for every live enemy at time t.
func (df *DriftField) Apply(enemies []*Enemy, t float64) {
	for _, e := range enemies {
		if e.IsDead() {
			continue
		}
		x, y := e.Pos()
		fx, fy := df.ForceAt(x, y, t)
		e.Unit().AddForce(ForceExternal, fx, fy)
	}
}
