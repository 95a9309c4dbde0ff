package orchestrator

import "github.com/sells-group/sentiment-cli/internal/model"

// demoData returns fresh copies of the demo rows and cloud tallies.
func demoData() ([]model.ResultRow, model.Tallies) {
	rows := []model.ResultRow{
		{Text: "I absolutely love this product!", Label: model.LabelPositive, Score: 0.92, Source: model.SourceDemo},
		{Text: "The UI is okay, nothing special.", Label: model.LabelNeutral, Score: 0.02, Source: model.SourceDemo},
		{Text: "Support was slow and unhelpful.", Label: model.LabelNegative, Score: -0.78, Source: model.SourceDemo},
	}
	tallies := model.Tallies{
		model.LabelPositive: {{Term: "love", Count: 9}, {Term: "great", Count: 7}},
		model.LabelNegative: {{Term: "slow", Count: 6}, {Term: "unhelpful", Count: 5}},
	}
	return rows, tallies
}
