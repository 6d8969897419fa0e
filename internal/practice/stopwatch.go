package practice

import (
	"errors"
	"fmt"
	"time"
)

type StopwatchState int

const (
	Idle StopwatchState = iota
	Running
	Paused
	Stopped
)

func (s StopwatchState) String() string {
	return [...]string{"idle", "running", "paused", "stopped"}[s]
}

var ErrInvalidTransition = errors.New("invalid stopwatch transition")

// Transition is one state change and the wall-clock time it happened.
type Transition struct {
	To StopwatchState
	At time.Time
}

// Stopwatch measures practice time with pause/resume. Elapsed time is derived
// from the recorded transitions, never accumulated by a ticker.
type Stopwatch struct {
	now         func() time.Time
	state       StopwatchState
	transitions []Transition
}

// NewStopwatch returns an idle stopwatch. A nil clock means time.Now.
func NewStopwatch(clock func() time.Time) *Stopwatch {
	if clock == nil {
		clock = time.Now
	}
	return &Stopwatch{now: clock}
}

func (w *Stopwatch) State() StopwatchState { return w.state }

func (w *Stopwatch) Transitions() []Transition {
	return append([]Transition(nil), w.transitions...)
}

func (w *Stopwatch) Start() error  { return w.move(Running, Idle) }
func (w *Stopwatch) Pause() error  { return w.move(Paused, Running) }
func (w *Stopwatch) Resume() error { return w.move(Running, Paused) }

// Stop ends the recording and returns the elapsed practice time.
func (w *Stopwatch) Stop() (time.Duration, error) {
	if err := w.move(Stopped, Running, Paused); err != nil {
		return 0, err
	}
	return w.Elapsed(w.transitions[len(w.transitions)-1].At), nil
}

// Reset discards all transitions.
func (w *Stopwatch) Reset() {
	w.state = Idle
	w.transitions = nil
}

// Elapsed is the running time up to now.
func (w *Stopwatch) Elapsed(now time.Time) time.Duration {
	return Elapsed(w.transitions, now)
}

// Elapsed sums the running intervals in transitions. An interval still open
// is closed at now.
func Elapsed(transitions []Transition, now time.Time) time.Duration {
	var total time.Duration
	var since time.Time
	running := false
	for _, t := range transitions {
		if running && t.To != Running {
			total += t.At.Sub(since)
			running = false
		}
		if t.To == Running && !running {
			since, running = t.At, true
		}
	}
	if running && now.After(since) {
		total += now.Sub(since)
	}
	return total
}

func (w *Stopwatch) move(to StopwatchState, from ...StopwatchState) error {
	for _, f := range from {
		if w.state == f {
			w.state = to
			w.transitions = append(w.transitions, Transition{To: to, At: w.now()})
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.state, to)
}
