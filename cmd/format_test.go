package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sentiment-cli/internal/model"
	"github.com/sells-group/sentiment-cli/internal/orchestrator"
	"github.com/sells-group/sentiment-cli/pkg/analysis"
)

func testOutcome() *orchestrator.Outcome {
	return &orchestrator.Outcome{
		Snapshot: model.Snapshot{
			Rows: []model.ResultRow{
				{Text: "I absolutely love this product!", Label: model.LabelPositive, Score: 0.92, Source: model.SourceDemo},
				{Text: "Support was slow\nand unhelpful.", Label: model.LabelNegative, Score: -0.78, Source: model.SourceDemo},
			},
			Cloud: []model.TermWeight{{Term: "love", Weight: 9}, {Term: "slow", Weight: 6}},
		},
		Added:  2,
		Failed: 1,
	}
}

func TestFormatRows(t *testing.T) {
	var buf bytes.Buffer
	formatRows(&buf, testOutcome().Snapshot.Rows)

	output := buf.String()
	assert.Contains(t, output, "LABEL")
	assert.Contains(t, output, "SCORE")
	assert.Contains(t, output, "positive")
	assert.Contains(t, output, "+0.92")
	assert.Contains(t, output, "-0.78")
	assert.Contains(t, output, "Support was slow and unhelpful.")
}

func TestFormatRows_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("word ", 40)
	var buf bytes.Buffer
	formatRows(&buf, []model.ResultRow{{Text: long, Label: model.LabelNeutral}})

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), long)
}

func TestFormatCloud(t *testing.T) {
	var buf bytes.Buffer
	formatCloud(&buf, testOutcome().Snapshot.Cloud, 1)
	assert.Contains(t, buf.String(), "love")
	assert.NotContains(t, buf.String(), "slow")

	buf.Reset()
	formatCloud(&buf, nil, 0)
	assert.Equal(t, "Cloud is empty.\n", buf.String())
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	formatSummary(&buf, model.Summary{Total: 3, Positive: 1, Neutral: 1, Negative: 1, AvgScore: 0.0533})

	output := buf.String()
	assert.Contains(t, output, "Total:")
	assert.Contains(t, output, "3")
	assert.Contains(t, output, "+0.053")
}

func TestFormatOutcome(t *testing.T) {
	var buf bytes.Buffer
	formatOutcome(&buf, testOutcome())
	assert.Contains(t, buf.String(), "Added 2 row(s), 1 line(s) failed.")
	assert.Contains(t, buf.String(), "TERM")
}

func TestWriteOutcome_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutcome(&buf, "json", testOutcome()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc, "rows")
	assert.Contains(t, doc, "cloud")
}

func TestWriteOutcome_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeOutcome(&buf, "xml", testOutcome()))
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{analysis.NewError(analysis.KindUnreachable, "down", nil), "unreachable"},
		{analysis.NewError(analysis.KindUnsupportedFileType, "png", nil), "unsupported file type"},
		{&analysis.Error{Kind: analysis.KindServiceError, StatusCode: 503, Body: "busy"}, "status 503: busy"},
		{analysis.NewError(analysis.KindInvalidInput, "empty", nil), "nothing to analyze"},
		{analysis.NewError(analysis.KindMalformedResponse, "odd", nil), "unexpected response"},
	}
	for _, tt := range tests {
		assert.Contains(t, describeError(tt.err), tt.want)
	}
}

func TestTextInput(t *testing.T) {
	got, err := textInput(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	got, err = textInput(strings.NewReader("piped"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "piped", got)

	got, err = textInput(strings.NewReader("ignored"), []string{"great", "service"})
	require.NoError(t, err)
	assert.Equal(t, "great service", got)
}
