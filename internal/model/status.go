package model

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Statuses in display order.
var Statuses = []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Open reports whether the appointment can still be cancelled.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Target is the status an action moves an appointment to.
func (a Action) Target() Status {
	switch a {
	case ActionConfirm:
		return StatusConfirmed
	case ActionComplete:
		return StatusCompleted
	case ActionCancel:
		return StatusCancelled
	}
	return ""
}

// ActionsFor lists what the UI offers for a row. It never offers more than the
// transition graph allows; the backend stays the authority.
func ActionsFor(role Role, s Status) []Action {
	var out []Action
	if role == RoleDoctor {
		switch s {
		case StatusScheduled:
			out = append(out, ActionConfirm)
		case StatusConfirmed:
			out = append(out, ActionComplete)
		}
	}
	if s.Open() {
		out = append(out, ActionCancel)
	}
	return out
}

func Allowed(role Role, s Status, a Action) bool {
	for _, v := range ActionsFor(role, s) {
		if v == a {
			return true
		}
	}
	return false
}
