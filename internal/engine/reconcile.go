package engine

// decision is the outcome of reconciling one remote snapshot.
type decision int

const (
	// decisionHydrate accepts the first snapshot of a session.
	decisionHydrate decision = iota
	// decisionDiscard drops an echo of this client's unconfirmed write.
	decisionDiscard
	// decisionReplace overwrites the list with a confirmed snapshot.
	decisionReplace
)

func (d decision) String() string {
	switch d {
	case decisionHydrate:
		return "hydrate"
	case decisionDiscard:
		return "discard"
	case decisionReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// reconcile decides what to do with a snapshot. The first snapshot after
// the session starts is always taken; afterwards pending-write echoes are
// dropped and confirmed snapshots win at document granularity.
func reconcile(loaded, pendingWrite bool) decision {
	switch {
	case !loaded:
		return decisionHydrate
	case pendingWrite:
		return decisionDiscard
	default:
		return decisionReplace
	}
}
