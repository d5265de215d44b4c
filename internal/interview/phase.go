package interview

import "fmt"

// Phase is the position of a session in the interview flow.
type Phase string

const (
	PhaseIntro      Phase = "INTRO"
	PhaseTransition Phase = "TRANSITION"
	PhaseInterview  Phase = "INTERVIEW"
	PhaseEvaluation Phase = "EVALUATION"
)

// order is used to keep phase changes monotonic.
var order = map[Phase]int{
	PhaseIntro:      0,
	PhaseTransition: 1,
	PhaseInterview:  2,
	PhaseEvaluation: 3,
}

// ParsePhase accepts only the four known phases.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if _, ok := order[p]; !ok {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

func (p Phase) String() string { return string(p) }

// Before reports whether p comes strictly before q.
func (p Phase) Before(q Phase) bool {
	return order[p] < order[q]
}
