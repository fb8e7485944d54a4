package opt

import "sync"

type runKey struct {
	PlanDate string
	Algo     Algorithm
}

// RunLog keeps the latest search statistics per plan date and algorithm.
type RunLog struct {
	mu   sync.Mutex
	runs map[runKey]SearchStats
}

func NewRunLog() *RunLog {
	return &RunLog{runs: map[runKey]SearchStats{}}
}

// Record overwrites any earlier entry for the same date and algorithm.
func (l *RunLog) Record(planDate string, algo Algorithm, s SearchStats) {
	l.mu.Lock()
	l.runs[runKey{PlanDate: planDate, Algo: algo}] = s
	l.mu.Unlock()
}

// Runs returns the entries recorded for planDate keyed by algorithm label.
func (l *RunLog) Runs(planDate string) map[string]SearchStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := map[string]SearchStats{}
	for k, v := range l.runs {
		if k.PlanDate == planDate {
			out[string(k.Algo)] = v
		}
	}
	return out
}
