package arena

// FlockController is the local-behaviour producer: classic separation,
// alignment and cohesion, deposited into each enemy's force unit under the
// local source. It never touches weights; the arbitration unit decides how
// much of this counts for steered members.
type FlockController struct {
	tun FlockTuning
}

// NewFlockController builds a producer with the given tuning.
func NewFlockController(tun FlockTuning) *FlockController {
	return &FlockController{tun: tun}
}

// Apply deposits one tick's local forces for every live enemy. O(n²) over the
// live population; fine at arena scale.
func (fc *FlockController) Apply(enemies []*Enemy) {
	visSq := fc.tun.VisualRange * fc.tun.VisualRange
	protSq := fc.tun.ProtectedRange * fc.tun.ProtectedRange

	for _, e := range enemies {
		if e.IsDead() {
			continue
		}
		ex, ey := e.Pos()
		evx, evy := e.Vel()

		closeDx, closeDy := 0.0, 0.0
		velSumX, velSumY := 0.0, 0.0
		posSumX, posSumY := 0.0, 0.0
		neighbors := 0.0

		for _, o := range enemies {
			if o == e || o.IsDead() {
				continue
			}
			ox, oy := o.Pos()
			dx := ex - ox
			dy := ey - oy
			distSq := dx*dx + dy*dy

			if distSq < protSq {
				closeDx += dx
				closeDy += dy
			}
			if distSq < visSq {
				ovx, ovy := o.Vel()
				velSumX += ovx
				velSumY += ovy
				posSumX += ox
				posSumY += oy
				neighbors++
			}
		}

		fx := closeDx * fc.tun.AvoidFactor
		fy := closeDy * fc.tun.AvoidFactor

		if neighbors > 0 {
			fx += (velSumX/neighbors - evx) * fc.tun.MatchingFactor
			fy += (velSumY/neighbors - evy) * fc.tun.MatchingFactor
			fx += (posSumX/neighbors - ex) * fc.tun.CenteringFactor
			fy += (posSumY/neighbors - ey) * fc.tun.CenteringFactor
		}

		e.Unit().AddForce(ForceLocal, fx, fy)
	}
}
