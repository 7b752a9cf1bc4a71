package saga

import "fmt"

// StateMachine validates status changes against a fixed transition table.
type StateMachine struct {
	name  string
	edges map[string]map[string]struct{}
}

func NewStateMachine(name string, transitions map[string][]string) *StateMachine {
	edges := make(map[string]map[string]struct{}, len(transitions))
	for from, targets := range transitions {
		set := make(map[string]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		edges[from] = set
	}
	return &StateMachine{name: name, edges: edges}
}

func (m *StateMachine) Can(from, to string) bool {
	_, ok := m.edges[from][to]
	return ok
}

// Transition returns to when the move is legal and ErrInvalidTransition otherwise.
func (m *StateMachine) Transition(from, to string) (string, error) {
	if !m.Can(from, to) {
		return from, fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, m.name, from, to)
	}
	return to, nil
}
