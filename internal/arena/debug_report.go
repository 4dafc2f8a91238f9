package arena

import (
	"fmt"
	"math"
	"strings"
)

// BuildDebugReport renders a multi-section text snapshot of the simulation:
// formation lifecycle state, population breakdown, and per-enemy arbitration
// weights. Meant for the clipboard hotkey in the game binary and for bug
// reports, not for machines.
func BuildDebugReport(s *Simulation) string {
	var sb strings.Builder

	px, py := s.Player()
	fmt.Fprintf(&sb, "=== Arena Debug Report ===\n")
	fmt.Fprintf(&sb, "tick=%d wave=%d elapsed=%.1fs player=(%.0f,%.0f)\n",
		s.Tick(), s.Wave(), s.Elapsed(), px, py)
	fmt.Fprintf(&sb, "population=%d/%d\n\n", s.PopulationCount(), s.PopulationCap())

	fmt.Fprintf(&sb, "--- Formations (%d active) ---\n", s.Director().ActiveCount())
	for _, f := range s.Director().Formations() {
		dist := math.Hypot(px-f.CenterX, py-f.CenterY)
		fmt.Fprintf(&sb, "F%s %-7s center=(%.0f,%.0f) rot=%.2f t=%.1fs live=%d/%d dist=%.0f\n",
			f.ID.String()[:8], f.PatternID, f.CenterX, f.CenterY, f.Rotation, f.Time,
			f.LiveMemberCount(), f.designedCount, dist)
	}
	if len(s.Director().Formations()) == 0 {
		sb.WriteString("none\n")
	}
	sb.WriteByte('\n')

	free, inFormation, inConstellation := 0, 0, 0
	for _, e := range s.Enemies {
		if e.IsDead() {
			continue
		}
		switch e.Membership().Kind {
		case MemberOfFormation:
			inFormation++
		case MemberOfConstellation:
			inConstellation++
		default:
			free++
		}
	}
	fmt.Fprintf(&sb, "--- Population ---\n")
	fmt.Fprintf(&sb, "free=%d formation=%d constellation=%d\n\n", free, inFormation, inConstellation)

	fmt.Fprintf(&sb, "--- Force weights (first %d enemies) ---\n", debugReportEnemyLimit)
	shown := 0
	for _, e := range s.Enemies {
		if e.IsDead() {
			continue
		}
		if shown >= debugReportEnemyLimit {
			break
		}
		u := e.Unit()
		x, y := e.Pos()
		fmt.Fprintf(&sb, "E%-3d (%.0f,%.0f) %-13s w: local=%.2f formation=%.2f constellation=%.2f\n",
			e.ID(), x, y, e.Membership().Kind,
			u.Weight(ForceLocal), u.Weight(ForceFormation), u.Weight(ForceConstellation))
		shown++
	}

	return sb.String()
}

const debugReportEnemyLimit = 24
