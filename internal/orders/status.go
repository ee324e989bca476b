package orders

type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusScheduled Status = "Scheduled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusScheduled: true},
	StatusPaid:      {StatusScheduled: true},
	StatusScheduled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// RequiresAdmin reports whether moving an order into to is an admin action.
func RequiresAdmin(to Status) bool { return to == StatusScheduled }

// IsTarget reports whether some status can move into s.
func IsTarget(s Status) bool {
	for _, next := range validNext {
		if next[s] {
			return true
		}
	}
	return false
}
