package runner

import "fmt"

// State is a stage in a run's lifecycle.
type State string

const (
	StateNotStarted            State = "NotStarted"
	StateBrowserLaunched       State = "BrowserLaunched"
	StatePageReady             State = "PageReady"
	StateStepRunning           State = "StepRunning"
	StateStepCompleted         State = "StepCompleted"
	StateFailed                State = "Failed"
	StateErrorArtifactCaptured State = "ErrorArtifactCaptured"
	StateTornDown              State = "TornDown"
)

var transitions = map[State][]State{
	StateNotStarted:            {StateBrowserLaunched, StateTornDown},
	StateBrowserLaunched:       {StatePageReady, StateFailed},
	StatePageReady:             {StateStepRunning, StateTornDown},
	StateStepRunning:           {StateStepCompleted, StateFailed},
	StateStepCompleted:         {StateStepRunning, StateTornDown},
	StateFailed:                {StateErrorArtifactCaptured, StateTornDown},
	StateErrorArtifactCaptured: {StateTornDown},
	StateTornDown:              nil,
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine tracks the current state and the path taken.
type machine struct {
	current  State
	path     []State
	onChange func(from, to State)
}

func newMachine(onChange func(from, to State)) *machine {
	return &machine{
		current:  StateNotStarted,
		path:     []State{StateNotStarted},
		onChange: onChange,
	}
}

func (m *machine) to(next State) error {
	if !CanTransition(m.current, next) {
		return fmt.Errorf("illegal state transition %s -> %s", m.current, next)
	}
	from := m.current
	m.current = next
	m.path = append(m.path, next)
	if m.onChange != nil {
		m.onChange(from, next)
	}
	return nil
}

func (m *machine) Path() []State {
	out := make([]State, len(m.path))
	copy(out, m.path)
	return out
}
