package pipeline

import (
	"sort"
	"time"

	"github.com/ShayCichocki/autonoma/internal/state"
)

// Report status values.
const (
	ReportCompleted             = "completed"
	ReportCompletedWithFailures = "completed_with_failures"
)

// Report summarizes a finished run.
type Report struct {
	Status             string                   `json:"status"`
	CompletedItems     []string                 `json:"completed_items"`
	FailedItems        []string                 `json:"failed_items"`
	ItemsByStatus      map[state.ItemStatus]int `json:"items_by_status"`
	TotalResourceUsage int64                    `json:"total_resource_usage"`
	Duration           time.Duration            `json:"duration"`
}

// buildReport assembles the final report from store statistics and the
// run's completion sets.
func (p *Pipeline) buildReport(completed, failed map[string]bool) (*Report, error) {
	stats, err := p.store.Statistics()
	if err != nil {
		return nil, err
	}

	r := &Report{
		Status:             ReportCompleted,
		CompletedItems:     sortedKeys(completed),
		FailedItems:        sortedKeys(failed),
		ItemsByStatus:      stats.ItemsByStatus,
		TotalResourceUsage: stats.TotalResourceUsage,
		Duration:           time.Since(p.started),
	}
	if len(failed) > 0 {
		r.Status = ReportCompletedWithFailures
	}
	return r, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
