package domain

// EntityState is the lifecycle position of a managed entity.
// Every state other than Active is terminal.
type EntityState string

const (
	EntityStateActive     EntityState = "ACTIVE"
	EntityStateRescinded  EntityState = "RESCINDED"
	EntityStateDeleted    EntityState = "DELETED"
	EntityStateClosed     EntityState = "CLOSED"
	EntityStateSuperseded EntityState = "SUPERSEDED"
)

func (s EntityState) String() string { return string(s) }

// IsTerminal reports whether no further transition is possible.
func (s EntityState) IsTerminal() bool { return s != EntityStateActive }

// TerminalRef pairs a terminal action reference with the state it implies.
type TerminalRef struct {
	ActionID *int64
	State    EntityState
}

// StateOf derives the current state from an entity's terminal references,
// checked in order. An entity with no terminal reference set is Active.
func StateOf(refs ...TerminalRef) EntityState {
	for _, r := range refs {
		if r.ActionID != nil {
			return r.State
		}
	}
	return EntityStateActive
}
