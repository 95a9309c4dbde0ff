package devserver

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/sells-group/sentiment-cli/internal/model"
)

// Compound scores at or beyond these bounds are labelled positive or negative.
const (
	positiveThreshold = 0.20
	negativeThreshold = -0.20
)

var (
	analyzer = govader.NewSentimentIntensityAnalyzer()

	tagPattern  = regexp.MustCompile(`<[^>]*>`)
	linkPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// plainText renders markdown and strips the markup and bare links.
func plainText(input string) string {
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	text := html.UnescapeString(tagPattern.ReplaceAllString(string(rendered), " "))
	text = linkPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Score returns the VADER compound score of text and its label.
func Score(text string) (float64, model.Label) {
	score := analyzer.PolarityScores(plainText(text)).Compound

	switch {
	case score >= positiveThreshold:
		return score, model.LabelPositive
	case score <= negativeThreshold:
		return score, model.LabelNegative
	default:
		return score, model.LabelNeutral
	}
}
