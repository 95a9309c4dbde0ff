package model

import (
	"strings"
	"time"
)

// Label is the sentiment class assigned to an observation.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// AllLabels returns the labels in canonical bucket order.
func AllLabels() []Label {
	return []Label{LabelPositive, LabelNeutral, LabelNegative}
}

// ParseLabel normalizes a service-provided label. Returns false for unknown labels.
func ParseLabel(s string) (Label, bool) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case LabelPositive:
		return LabelPositive, true
	case LabelNeutral:
		return LabelNeutral, true
	case LabelNegative:
		return LabelNegative, true
	default:
		return "", false
	}
}

// Polarity returns the nominal score for a label when the service supplies none.
func (l Label) Polarity() float64 {
	switch l {
	case LabelPositive:
		return 1
	case LabelNegative:
		return -1
	default:
		return 0
	}
}

// Row provenance tags.
const (
	SourceManual = "manual"
	SourceUpload = "upload"
	SourceDemo   = "demo"
)

// ResultRow is one analyzed observation. Rows are immutable once stored.
type ResultRow struct {
	Text       string    `json:"text" yaml:"text"`
	Label      Label     `json:"label" yaml:"label"`
	Score      float64   `json:"score" yaml:"score"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at"`
}

// TermWeight is one term cloud entry.
type TermWeight struct {
	Term   string  `json:"term" yaml:"term"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// TermCount is a service-supplied keyword count.
type TermCount struct {
	Term  string `json:"term" yaml:"term"`
	Count int    `json:"count" yaml:"count"`
}

// Tallies groups keyword counts by label. Each bucket keeps the order the
// service reported its terms in.
type Tallies map[Label][]TermCount

// Empty reports whether no bucket carries any term.
func (t Tallies) Empty() bool {
	for _, bucket := range t {
		if len(bucket) > 0 {
			return false
		}
	}
	return true
}

// Snapshot is a read-only copy of the session view.
type Snapshot struct {
	Rows  []ResultRow  `json:"rows" yaml:"rows"`
	Cloud []TermWeight `json:"cloud" yaml:"cloud"`
}

// Summary aggregates the stored rows for display.
type Summary struct {
	Total    int     `json:"total" yaml:"total"`
	Positive int     `json:"positive" yaml:"positive"`
	Neutral  int     `json:"neutral" yaml:"neutral"`
	Negative int     `json:"negative" yaml:"negative"`
	AvgScore float64 `json:"avg_score" yaml:"avg_score"`
}

// Summarize computes label counts and the mean score of rows.
func Summarize(rows []ResultRow) Summary {
	var s Summary
	var total float64
	for _, r := range rows {
		s.Total++
		total += r.Score
		switch r.Label {
		case LabelPositive:
			s.Positive++
		case LabelNeutral:
			s.Neutral++
		case LabelNegative:
			s.Negative++
		}
	}
	if s.Total > 0 {
		s.AvgScore = total / float64(s.Total)
	}
	return s
}
