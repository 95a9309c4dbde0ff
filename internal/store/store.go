// Package store holds the session's analyzed rows and the term cloud derived from them.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/sells-group/sentiment-cli/internal/model"
	"github.com/sells-group/sentiment-cli/internal/wordcloud"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp ObservedAt (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithCloudSize bounds the derived cloud. Values <= 0 keep wordcloud.MaxTerms
// and larger values are clamped to it.
func WithCloudSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cloudSize = min(n, wordcloud.MaxTerms)
		}
	}
}

// Store owns the ordered result rows (most recent first) and the derived
// cloud. Every mutation recomputes the cloud under the write lock, so readers
// never see rows and cloud out of step.
type Store struct {
	mu    sync.RWMutex
	rows  []model.ResultRow
	cloud []model.TermWeight
	last  time.Time

	now       func() time.Time
	cloudSize int
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		cloudSize: wordcloud.MaxTerms,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendOne places row before all existing rows.
func (s *Store) AppendOne(row model.ResultRow) {
	s.AppendMany([]model.ResultRow{row}, true)
}

// AppendMany adds rows as one batch, keeping their order. With prepend the
// batch goes before existing rows, otherwise after them.
func (s *Store) AppendMany(rows []model.ResultRow, prepend bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(rows, prepend)
	s.recompute(nil)
}

// AppendWithTallies prepends rows and, when tallies is non-empty, derives the
// cloud from tallies alone instead of from the stored texts.
func (s *Store) AppendWithTallies(rows []model.ResultRow, tallies model.Tallies) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(rows, true)
	s.recompute(tallies)
}

// Replace swaps the whole contents for rows in one mutation.
func (s *Store) Replace(rows []model.ResultRow, tallies model.Tallies) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.insert(rows, true)
	s.recompute(tallies)
}

// Clear drops all rows and the cloud.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.cloud = nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Snapshot returns a copy of the rows and cloud.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Snapshot{
		Rows:  append([]model.ResultRow{}, s.rows...),
		Cloud: append([]model.TermWeight{}, s.cloud...),
	}
}

// Summary aggregates the stored rows.
func (s *Store) Summary() model.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Summarize(s.rows)
}

// Filter returns rows matching label and containing query, case-insensitively.
// An empty label or "all" matches every label; an empty query matches every text.
func (s *Store) Filter(label model.Label, query string) []model.ResultRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := []model.ResultRow{}
	for _, r := range s.rows {
		if label != "" && label != "all" && r.Label != label {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Text), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// insert stamps rows and splices them in. Caller holds mu.
func (s *Store) insert(rows []model.ResultRow, prepend bool) {
	batch := make([]model.ResultRow, len(rows))
	for i, r := range rows {
		r.ObservedAt = s.stamp()
		batch[i] = r
	}

	if prepend {
		s.rows = append(batch, s.rows...)
	} else {
		s.rows = append(s.rows, batch...)
	}
}

// stamp returns a time strictly after the previous stamp. Caller holds mu.
func (s *Store) stamp() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

// recompute rebuilds the cloud from tallies when present, else from the
// texts of all stored rows. Caller holds mu.
func (s *Store) recompute(tallies model.Tallies) {
	if !tallies.Empty() {
		s.cloud = wordcloud.TopTallies(tallies, s.cloudSize)
		return
	}

	texts := make([]string, len(s.rows))
	for i, r := range s.rows {
		texts[i] = r.Text
	}
	s.cloud = wordcloud.TopTexts(texts, s.cloudSize)
}
