package review

import "math"

// Dashboard summarises today's review progress.
type Dashboard struct {
	TotalCount       int     `json:"totalCount"`
	CompletedCount   int     `json:"completedCount"`
	IncompletedCount int     `json:"incompletedCount"`
	ProgressRate     float64 `json:"progressRate"`
}

// NewDashboard computes the counters. ProgressRate is a percentage with
// one decimal and is 0 when there is nothing to review.
func NewDashboard(total, completed int) Dashboard {
	d := Dashboard{
		TotalCount:       total,
		CompletedCount:   completed,
		IncompletedCount: total - completed,
	}
	if total > 0 {
		d.ProgressRate = math.Round(float64(completed)/float64(total)*1000) / 10
	}
	return d
}
