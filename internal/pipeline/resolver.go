package pipeline

import "github.com/ShayCichocki/autonoma/internal/state"

// readyItems returns the work items eligible to start: PENDING items whose
// dependencies have all completed.
//
// Dependency IDs are not validated. A reference to an unknown item, or to
// one scheduled in a later phase, never enters the completed set, so the
// referring item simply never becomes ready. The scheduler surfaces that
// as a stall rather than an error.
func readyItems(items []state.WorkItem, completed map[string]bool) []state.WorkItem {
	var ready []state.WorkItem
	for _, item := range items {
		if item.Status != state.ItemPending {
			continue
		}
		if depsSatisfied(item, completed) {
			ready = append(ready, item)
		}
	}
	return ready
}

func depsSatisfied(item state.WorkItem, completed map[string]bool) bool {
	for _, dep := range item.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}
