package journal

import (
	"sort"
	"time"
)

// Summary aggregates a set of records.
type Summary struct {
	Total    int `json:"total"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Compiles int `json:"compiles"`
	Links    int `json:"links"`
	Copies   int `json:"copies"`

	// Targets counts distinct builds.
	Targets int `json:"targets"`

	TotalDuration time.Duration `json:"total_duration"`
	P50Duration   time.Duration `json:"p50_duration"`
	P95Duration   time.Duration `json:"p95_duration"`
	MaxDuration   time.Duration `json:"max_duration"`

	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// Summarize computes totals and duration percentiles over records.
func Summarize(records []*Record) Summary {
	var s Summary
	targets := make(map[string]struct{})
	durations := make([]time.Duration, 0, len(records))

	for _, r := range records {
		s.Total++
		switch r.Status {
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
		switch r.Action {
		case ActionCompile:
			s.Compiles++
		case ActionLink:
			s.Links++
		case ActionCopy:
			s.Copies++
		}

		targets[r.Target] = struct{}{}
		s.TotalDuration += r.Duration
		durations = append(durations, r.Duration)

		if s.First.IsZero() || r.Time.Before(s.First) {
			s.First = r.Time
		}
		if r.Time.After(s.Last) {
			s.Last = r.Time
		}
	}
	s.Targets = len(targets)

	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		s.P50Duration = percentile(durations, 50)
		s.P95Duration = percentile(durations, 95)
		s.MaxDuration = durations[len(durations)-1]
	}
	return s
}

// percentile calculates the nth percentile of a sorted slice.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between closest ranks.
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return time.Duration(float64(sorted[lower])*(1-fraction) + float64(sorted[upper])*fraction)
}
