// Package report accumulates per item outcomes of a pipeline run.
//
// Item failures never stop a run. They are counted, the first few are kept
// for the end of run summary, and the caller decides what is fatal
package report

import (
	"maps"
	"slices"
	"sync"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/metrics"
)

// DefaultKeep is how many failures a Summary retains by default
const DefaultKeep = 50

// Failure is one skipped item
type Failure struct {
	Scope  string         `json:"scope"`
	Item   string         `json:"item"`
	Code   perr.ErrorCode `json:"code"`
	Reason string         `json:"reason"`
}

// Summary is safe for concurrent use
type Summary struct {
	stage string
	keep  int

	mu       sync.Mutex
	counts   map[string]int
	failures []Failure
	failed   int
}

// New returns a summary for stage keeping up to keep failures; keep <= 0 uses DefaultKeep
func New(stage string, keep int) *Summary {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Summary{stage: stage, keep: keep, counts: map[string]int{}}
}

// Stage is the pipeline stage name
func (s *Summary) Stage() string { return s.stage }

// Add bumps a named counter
func (s *Summary) Add(name string, n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.counts[name] += n
	s.mu.Unlock()
	metrics.Items.WithLabelValues(s.stage, name).Add(float64(n))
}

// Fail records a skipped item
func (s *Summary) Fail(scope, item string, err error) {
	f := Failure{Scope: scope, Item: item, Code: perr.CodeOf(err)}
	if err != nil {
		f.Reason = err.Error()
	}
	s.mu.Lock()
	s.failed++
	if len(s.failures) < s.keep {
		s.failures = append(s.failures, f)
	}
	s.mu.Unlock()
	metrics.Items.WithLabelValues(s.stage, "failed").Inc()
}

// Count returns a named counter
func (s *Summary) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

// Failed is the number of skipped items, including those not retained
func (s *Summary) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Failures returns a copy of the retained failures
func (s *Summary) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.failures)
}

// Counts returns a copy of every counter
func (s *Summary) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.counts)
}

// Merge folds o into s. Metrics were counted when o recorded them
func (s *Summary) Merge(o *Summary) {
	if o == nil || o == s {
		return
	}
	o.mu.Lock()
	counts := maps.Clone(o.counts)
	failures := slices.Clone(o.failures)
	failed := o.failed
	o.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, n := range counts {
		s.counts[k] += n
	}
	s.failed += failed
	for _, f := range failures {
		if len(s.failures) >= s.keep {
			break
		}
		s.failures = append(s.failures, f)
	}
}

// Log writes the summary and retained failures
func (s *Summary) Log(l *logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := l.Info().Str("stage", s.stage).Int("failed", s.failed)
	for _, k := range slices.Sorted(maps.Keys(s.counts)) {
		ev = ev.Int(k, s.counts[k])
	}
	ev.Msg("run summary")
	for _, f := range s.failures {
		l.Warn().Str("stage", s.stage).Str("scope", f.Scope).Str("item", f.Item).
			Int("code", int(f.Code)).Msg(f.Reason)
	}
	if dropped := s.failed - len(s.failures); dropped > 0 {
		l.Warn().Str("stage", s.stage).Int("not_shown", dropped).Msg("more failures")
	}
}
