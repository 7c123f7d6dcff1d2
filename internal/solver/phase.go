package solver

// Phase is a state of the search state machine.
type Phase uint8

// Search phases.
const (
	Unsolved Phase = iota
	Constructing
	Improving
	TimeExpired
	Converged
	Done
)

func (p Phase) String() string {
	switch p {
	case Unsolved:
		return "unsolved"
	case Constructing:
		return "constructing"
	case Improving:
		return "improving"
	case TimeExpired:
		return "time_expired"
	case Converged:
		return "converged"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

var transitions = map[Phase][]Phase{
	Unsolved:     {Constructing},
	Constructing: {Improving},
	Improving:    {TimeExpired, Converged},
	TimeExpired:  {Done},
	Converged:    {Done},
}

// machine records the phases a start went through.
type machine struct {
	trace []Phase
}

func newMachine() *machine { return &machine{trace: []Phase{Unsolved}} }

func (m *machine) current() Phase { return m.trace[len(m.trace)-1] }

// advance panics on a transition the state machine does not allow; that is
// a bug in the search, not a runtime condition.
func (m *machine) advance(to Phase) {
	from := m.current()
	for _, p := range transitions[from] {
		if p == to {
			m.trace = append(m.trace, to)
			return
		}
	}
	panic("solver: illegal phase transition " + from.String() + " -> " + to.String())
}

// Termination is the reason a search stopped.
type Termination string

// Termination reasons.
const (
	TerminationTimeExpired      Termination = "time_expired"
	TerminationConverged        Termination = "converged"
	TerminationProvenOptimal    Termination = "proven_optimal"
	TerminationProvenInfeasible Termination = "proven_infeasible"
)
