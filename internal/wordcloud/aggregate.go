// Package wordcloud derives ranked, size-bounded term clouds from text or
// service-supplied keyword tallies.
package wordcloud

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/sentiment-cli/internal/model"
)

// MaxTerms bounds every cloud produced by FromTexts and FromTallies.
const MaxTerms = 60

// minTermLen is exclusive: terms must be longer than this many runes.
const minTermLen = 2

// Counter tallies terms while remembering the order each was first seen.
// The zero value is ready to use.
type Counter struct {
	order  []string
	counts map[string]int
}

// Add increments term by n. Terms that are too short or counts that are not
// positive are ignored.
func (c *Counter) Add(term string, n int) {
	if n <= 0 || utf8.RuneCountInString(term) <= minTermLen {
		return
	}
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, seen := c.counts[term]; !seen {
		c.order = append(c.order, term)
	}
	c.counts[term] += n
}

// AddText normalizes text and counts each surviving token once.
func (c *Counter) AddText(text string) {
	for _, tok := range Tokenize(text) {
		c.Add(tok, 1)
	}
}

// Len returns the number of distinct terms.
func (c *Counter) Len() int {
	return len(c.order)
}

// Top returns up to n terms sorted by descending count. Equal counts keep
// first-seen order. n <= 0 means no bound.
func (c *Counter) Top(n int) []model.TermWeight {
	out := make([]model.TermWeight, 0, len(c.order))
	for _, term := range c.order {
		out = append(out, model.TermWeight{Term: term, Weight: float64(c.counts[term])})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Normalize lowercases text and strips every rune that is not a letter,
// number, whitespace, or hyphen.
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '-' {
			return r
		}
		return -1
	}, strings.ToLower(text))
}

// Tokenize normalizes text and splits it on whitespace, dropping tokens of
// two runes or fewer.
func Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > minTermLen {
			out = append(out, f)
		}
	}
	return out
}

// FromTexts tallies terms across all texts, in order, and returns the top
// MaxTerms.
func FromTexts(texts []string) []model.TermWeight {
	return TopTexts(texts, MaxTerms)
}

// TopTexts is FromTexts with an explicit bound.
func TopTexts(texts []string, n int) []model.TermWeight {
	var c Counter
	for _, t := range texts {
		c.AddText(t)
	}
	return c.Top(n)
}

// FromTallies unions per-label keyword counts, summing collisions, and
// returns the top MaxTerms. Labels are visited positive, neutral, negative.
func FromTallies(t model.Tallies) []model.TermWeight {
	return TopTallies(t, MaxTerms)
}

// TopTallies is FromTallies with an explicit bound.
func TopTallies(t model.Tallies, n int) []model.TermWeight {
	var c Counter
	for _, label := range model.AllLabels() {
		for _, tc := range t[label] {
			c.Add(strings.ToLower(strings.TrimSpace(tc.Term)), tc.Count)
		}
	}
	return c.Top(n)
}
