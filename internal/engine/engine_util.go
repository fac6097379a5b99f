package engine

func NewEmptyState() State {
	return State{
		RosterStatus: RosterLoading,
		Mutations:    map[string]Mutation{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func CountEvents(events []Event, eventType EventType) int {
	n := 0
	for _, event := range events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

// InFlight reports how many mutations are awaiting a response.
func (s State) InFlight() int {
	return len(s.Mutations)
}
