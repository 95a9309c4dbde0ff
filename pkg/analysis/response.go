package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sentiment-cli/internal/model"
)

// Result is a normalized analysis response. Callers never see which wire
// shape produced it.
type Result struct {
	Rows    []model.ResultRow
	Tallies model.Tallies
}

// wireResponse holds both documented response shapes. Exactly one of
// (Label, Score) or Sentiments is expected to be present.
type wireResponse struct {
	Label        *string         `json:"label"`
	Score        *float64        `json:"score"`
	Sentiments   *wireSentiments `json:"sentiments"`
	KeywordFreqs orderedTallies  `json:"keyword_freqs"`
}

type wireSentiments struct {
	Positive []string `json:"positive"`
	Neutral  []string `json:"neutral"`
	Negative []string `json:"negative"`
	// Some backends nest the keyword tallies next to the buckets.
	KeywordFreqs orderedTallies `json:"keyword_freqs"`
}

func (s *wireSentiments) bucket(l model.Label) []string {
	switch l {
	case model.LabelPositive:
		return s.Positive
	case model.LabelNeutral:
		return s.Neutral
	default:
		return s.Negative
	}
}

// orderedTallies decodes {label: {term: count}} keeping each bucket's
// document order, which encoding/json maps would discard.
type orderedTallies model.Tallies

func (o *orderedTallies) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	out := orderedTallies{}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return err
		}

		label, ok := model.ParseLabel(key)
		if !ok {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return eris.Wrap(err, "analysis: skip keyword bucket")
			}
			continue
		}

		bucket, err := decodeBucket(dec)
		if err != nil {
			return err
		}
		out[label] = append(out[label], bucket...)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}

	*o = out
	return nil
}

func decodeBucket(dec *json.Decoder) ([]model.TermCount, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var bucket []model.TermCount
	for dec.More() {
		term, err := stringToken(dec)
		if err != nil {
			return nil, err
		}

		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, eris.Wrapf(err, "analysis: keyword count for %q", term)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: keyword count for %q", term)
		}
		bucket = append(bucket, model.TermCount{Term: term, Count: int(math.Round(f))})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return bucket, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "analysis: read token")
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return eris.Errorf("analysis: expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", eris.Wrap(err, "analysis: read key")
	}
	s, ok := tok.(string)
	if !ok {
		return "", eris.Errorf("analysis: expected object key, got %v", tok)
	}
	return s, nil
}

// Normalize decodes a service response body into a Result. text is used as
// the row text when the service answers with the flat shape, which does not
// echo its input.
func Normalize(body []byte, text string) (*Result, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, NewError(KindMalformedResponse, "analysis: decode response", err)
	}

	switch {
	case wire.Sentiments != nil:
		return normalizeBucketed(&wire), nil
	case wire.Label != nil:
		return normalizeFlat(&wire, text)
	default:
		return nil, NewError(KindMalformedResponse, "analysis: unrecognized response shape", nil)
	}
}

func normalizeFlat(wire *wireResponse, text string) (*Result, error) {
	label, ok := model.ParseLabel(*wire.Label)
	if !ok {
		return nil, NewError(KindMalformedResponse, "analysis: unknown label "+*wire.Label, nil)
	}
	if wire.Score == nil {
		return nil, NewError(KindMalformedResponse, "analysis: missing score", nil)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewError(KindMalformedResponse, "analysis: flat response without input text", nil)
	}

	return &Result{
		Rows: []model.ResultRow{{Text: text, Label: label, Score: *wire.Score}},
	}, nil
}

func normalizeBucketed(wire *wireResponse) *Result {
	res := &Result{}
	for _, label := range model.AllLabels() {
		for _, t := range wire.Sentiments.bucket(label) {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			res.Rows = append(res.Rows, model.ResultRow{Text: t, Label: label, Score: label.Polarity()})
		}
	}

	tallies := wire.KeywordFreqs
	if len(tallies) == 0 {
		tallies = wire.Sentiments.KeywordFreqs
	}
	if len(tallies) > 0 {
		res.Tallies = model.Tallies(tallies)
	}
	return res
}
