package arena

import "github.com/google/uuid"

// BreakReason says why a formation left the active set.
type BreakReason int

const (
	BreakReachedTarget BreakReason = iota // closed to break distance
	BreakMembershipCollapsed             // live members fell under the viability floor
	BreakDirectorReset                   // subsystem reset broke it synchronously
)

func (br BreakReason) String() string {
	switch br {
	case BreakReachedTarget:
		return "reached_target"
	case BreakMembershipCollapsed:
		return "membership_collapsed"
	case BreakDirectorReset:
		return "director_reset"
	default:
		return "unknown"
	}
}

// FormationFormedEvent is emitted once when a formation enters the active set.
type FormationFormedEvent struct {
	FormationID uuid.UUID `json:"formation_id"`
	PatternID   string    `json:"pattern_id"`
	Tick        int       `json:"tick"`
	CenterX     float64   `json:"center_x"`
	CenterY     float64   `json:"center_y"`
	MemberIDs   []int     `json:"member_ids"`
}

// FormationBrokenEvent is emitted once when a formation breaks, whatever the
// reason. MemberIDs lists the members that were still alive at break time.
type FormationBrokenEvent struct {
	FormationID uuid.UUID   `json:"formation_id"`
	PatternID   string      `json:"pattern_id"`
	Tick        int         `json:"tick"`
	CenterX     float64     `json:"center_x"`
	CenterY     float64     `json:"center_y"`
	MemberIDs   []int       `json:"member_ids"`
	Reason      BreakReason `json:"reason"`
}

// EventSink consumes formation lifecycle events. Rendering, audio and
// telemetry all hang off this interface; the director never knows who is
// listening.
type EventSink interface {
	FormationFormed(ev FormationFormedEvent)
	FormationBroken(ev FormationBrokenEvent)
}

// NullSink discards all events.
type NullSink struct{}

func (NullSink) FormationFormed(FormationFormedEvent) {}
func (NullSink) FormationBroken(FormationBrokenEvent) {}

// FanoutSink forwards every event to each wrapped sink in order.
type FanoutSink []EventSink

func (fs FanoutSink) FormationFormed(ev FormationFormedEvent) {
	for _, s := range fs {
		s.FormationFormed(ev)
	}
}

func (fs FanoutSink) FormationBroken(ev FormationBrokenEvent) {
	for _, s := range fs {
		s.FormationBroken(ev)
	}
}
