package arena

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Draw renders the whole arena: enemies, formation overlays, and the player
// marker. Pure presentation; nothing in here mutates simulation state.
func (s *Simulation) Draw(screen *ebiten.Image) {
	for _, f := range s.director.Formations() {
		f.Draw(screen)
	}
	for _, e := range s.Enemies {
		e.Draw(screen)
	}

	// Player crosshair.
	px, py := s.Player()
	white := color.RGBA{R: 255, G: 255, B: 255, A: 220}
	ebitenutil.DrawLine(screen, px-8, py, px+8, py, white)
	ebitenutil.DrawLine(screen, px, py-8, px, py+8, white)
}

// Draw renders one enemy. Formation members are tinted and leaders get an
// outline ring, mirroring how squads mark their leads.
func (e *Enemy) Draw(screen *ebiten.Image) {
	if e.dead {
		return
	}
	var c color.RGBA
	switch e.membership.Kind {
	case MemberOfFormation:
		c = color.RGBA{R: 220, G: 80, B: 200, A: 255}
	case MemberOfConstellation:
		c = color.RGBA{R: 90, G: 180, B: 255, A: 255}
	default:
		c = color.RGBA{R: 220, G: 60, B: 40, A: 255}
	}
	vector.DrawFilledCircle(screen, float32(e.x), float32(e.y), float32(enemyRadius), c, true)

	if e.membership.Kind == MemberOfFormation && e.membership.IsLeader {
		vector.StrokeCircle(screen, float32(e.x), float32(e.y), float32(enemyRadius)+3, 1.0,
			color.RGBA{R: 255, G: 255, B: 255, A: 200}, true)
	}

	// Velocity tick.
	speed := math.Hypot(e.vx, e.vy)
	if speed > 1 {
		hx := e.x + e.vx/speed*enemyRadius*2
		hy := e.y + e.vy/speed*enemyRadius*2
		ebitenutil.DrawLine(screen, e.x, e.y, hx, hy, color.RGBA{R: 255, G: 255, B: 255, A: 120})
	}
}

// Draw renders a formation's center marker and a faint ring at its current
// pulse scale so breakups read visually.
func (f *Formation) Draw(screen *ebiten.Image) {
	if !f.Active {
		return
	}
	faint := color.RGBA{R: 220, G: 80, B: 200, A: 70}
	vector.StrokeCircle(screen, float32(f.CenterX), float32(f.CenterY), 6, 1.5, faint, true)
	for _, slot := range f.lastSlots {
		vector.StrokeCircle(screen, float32(slot.X), float32(slot.Y), 3, 1.0, faint, true)
	}
}
