package models

// Outcome is the terminal result of one pipeline invocation. It is computed
// once from the parse and merge results and consumed exactly once by the file
// router to pick a destination.
type Outcome int

const (
	// OutcomeProcessed means the rows were merged and the file belongs in the
	// processed area.
	OutcomeProcessed Outcome = iota
	// OutcomeIgnored means the object is not an inbound invoice XML; nothing
	// was fetched or moved.
	OutcomeIgnored
	// OutcomeAlreadyHandled means the object was gone at read time, i.e. a
	// previous (possibly concurrent) invocation already relocated it.
	OutcomeAlreadyHandled
	// OutcomeRejectedParsing means the XML was structurally invalid or missing
	// required fields.
	OutcomeRejectedParsing
	// OutcomeRejectedMerge means staging or the conditional insert failed.
	OutcomeRejectedMerge
	// OutcomeRejectedSystem covers unexpected faults (network, permissions).
	OutcomeRejectedSystem
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeAlreadyHandled:
		return "already_handled"
	case OutcomeRejectedParsing:
		return "rejected_parsing"
	case OutcomeRejectedMerge:
		return "rejected_merge"
	case OutcomeRejectedSystem:
		return "rejected_system"
	}
	return "unknown"
}

// Rejected reports whether the outcome routes the file to the error area.
func (o Outcome) Rejected() bool {
	switch o {
	case OutcomeRejectedParsing, OutcomeRejectedMerge, OutcomeRejectedSystem:
		return true
	}
	return false
}
