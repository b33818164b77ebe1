package pipeline

// State is the lifecycle of an adapter result
type State int

const (
	StatePending State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Gate is anything with a tri-state outcome
type Gate interface {
	State() State
	Err() error
}

// Result is Pending, Ready(value) or Failed(err). The zero value is Pending.
type Result[T any] struct {
	state State
	value T
	err   error
}

// Pending returns an unresolved result
func Pending[T any]() Result[T] {
	return Result[T]{}
}

// Ready returns a resolved result holding v
func Ready[T any](v T) Result[T] {
	return Result[T]{state: StateReady, value: v}
}

// Failed returns a result that resolved with err
func Failed[T any](err error) Result[T] {
	return Result[T]{state: StateFailed, err: err}
}

// FromPair converts a (value, error) return into a Result
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Failed[T](err)
	}
	return Ready(v)
}

func (r Result[T]) State() State { return r.state }
func (r Result[T]) Err() error   { return r.err }

// Value returns the value and whether the result is ready
func (r Result[T]) Value() (T, bool) {
	if r.state != StateReady {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Status is the combined state of several gates. Index points at the gate that decided it,
// or -1 when all are ready.
type Status struct {
	State State
	Err   error
	Index int
}

// Join combines gates: the first Failed gate wins, then the first Pending one, else Ready.
func Join(gates ...Gate) Status {
	pending := -1
	for i, g := range gates {
		switch g.State() {
		case StateFailed:
			return Status{State: StateFailed, Err: g.Err(), Index: i}
		case StatePending:
			if pending < 0 {
				pending = i
			}
		}
	}
	if pending >= 0 {
		return Status{State: StatePending, Index: pending}
	}
	return Status{State: StateReady, Index: -1}
}

// Derive runs fn only when every gate is ready; otherwise it carries the joined state.
func Derive[T any](fn func() T, gates ...Gate) Result[T] {
	st := Join(gates...)
	switch st.State {
	case StateFailed:
		return Failed[T](st.Err)
	case StatePending:
		return Pending[T]()
	default:
		return Ready(fn())
	}
}
