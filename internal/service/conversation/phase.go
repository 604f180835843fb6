package conversation

import "fmt"

// Phase is the interview stage a conversation has reached. The only
// transition is Next, which clamps at PhaseTechnical.
type Phase int

const (
	PhaseConcept Phase = iota + 1
	PhaseAudience
	PhaseFeatures
	PhaseDesign
	PhaseTechnical
)

const (
	FirstPhase = PhaseConcept
	LastPhase  = PhaseTechnical
)

var phaseTopics = map[Phase]string{
	PhaseConcept:   "the core concept: what the app is and why it should exist",
	PhaseAudience:  "the target audience and the situations they use the app in",
	PhaseFeatures:  "the features: must-have, nice-to-have and future",
	PhaseDesign:    "design: screens, navigation, colors, fonts and mood",
	PhaseTechnical: "technical constraints: authentication, data, AI, external APIs and payments",
}

// ParsePhase validates a stored phase value
func ParsePhase(n int) (Phase, error) {
	p := Phase(n)
	if !p.Valid() {
		return 0, fmt.Errorf("phase %d outside [%d,%d]", n, FirstPhase, LastPhase)
	}
	return p, nil
}

func (p Phase) Valid() bool {
	return p >= FirstPhase && p <= LastPhase
}

// Next returns the following phase, or p itself at the last phase
func (p Phase) Next() Phase {
	if p >= LastPhase {
		return LastPhase
	}
	return p + 1
}

// Topic describes what the interview focuses on during p
func (p Phase) Topic() string {
	return phaseTopics[p]
}

func (p Phase) String() string {
	return fmt.Sprintf("%d/%d", int(p), int(LastPhase))
}
