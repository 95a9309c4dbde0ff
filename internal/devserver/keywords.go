package devserver

import (
	"bytes"
	"encoding/json"
	"strconv"
	"unicode"

	"github.com/sells-group/sentiment-cli/internal/model"
	"github.com/sells-group/sentiment-cli/internal/wordcloud"
)

// maxKeywords caps each keyword bucket.
const maxKeywords = 150

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "is", "this", "that", "it", "as", "are", "a", "an", "of", "to", "for", "in", "on", "be",
		"with", "by", "or", "from", "at", "was", "were", "will", "would", "can", "should", "not", "but",
		"has", "have", "i", "we", "you", "they", "their", "our", "your", "so", "if", "too", "may",
		"also", "these", "those", "such", "each", "per", "all", "any", "more", "most", "some",
	} {
		stopwords[w] = struct{}{}
	}
}

// keywordCounts tallies non-stopword, non-numeric terms across texts, most
// frequent first.
func keywordCounts(texts []string) orderedCounts {
	var c wordcloud.Counter
	for _, text := range texts {
		for _, tok := range wordcloud.Tokenize(text) {
			if _, stop := stopwords[tok]; stop || numeric(tok) {
				continue
			}
			c.Add(tok, 1)
		}
	}

	top := c.Top(maxKeywords)
	out := make(orderedCounts, len(top))
	for i, tw := range top {
		out[i] = model.TermCount{Term: tw.Term, Count: int(tw.Weight)}
	}
	return out
}

func numeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// orderedCounts encodes as a JSON object whose keys keep slice order.
type orderedCounts []model.TermCount

func (o orderedCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tc := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(tc.Term)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(tc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
