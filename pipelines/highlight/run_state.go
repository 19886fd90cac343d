package highlight

import (
	"fmt"
	"sync"

	"highlight_reel/common"
)

// State is the lifecycle state of one run.
type State string

const (
	StateIdle         State = "idle"
	StateSynthesizing State = State(common.StageSynthesize)
	StateCapturing    State = State(common.StageCapture)
	StateAssembling   State = State(common.StageAssemble)
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// RunState tracks one run through its state machine.
type RunState struct {
	mu      sync.RWMutex
	current State
	history []State
}

// NewRunState creates a run in the idle state.
func NewRunState() *RunState {
	return &RunState{current: StateIdle, history: []State{StateIdle}}
}

// Transition validates and applies a state change.
func (s *RunState) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !isValidTransition(s.current, to) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, s.current, to)
	}
	s.current = to
	s.history = append(s.history, to)
	return nil
}

func (s *RunState) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// History returns every state the run has entered, in order.
func (s *RunState) History() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]State(nil), s.history...)
}

func (s *RunState) Terminal() bool {
	return isTerminal(s.Current())
}

func isTerminal(st State) bool {
	return st == StateDone || st == StateFailed
}

// isValidTransition enforces the allowed edges. Each stage is entered at most once.
func isValidTransition(from, to State) bool {
	if isTerminal(from) {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateIdle:
		return to == StateSynthesizing
	case StateSynthesizing:
		return to == StateCapturing
	case StateCapturing:
		return to == StateAssembling
	case StateAssembling:
		return to == StateDone
	default:
		return false
	}
}
