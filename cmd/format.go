package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/sentiment-cli/internal/export"
	"github.com/sells-group/sentiment-cli/internal/model"
	"github.com/sells-group/sentiment-cli/internal/orchestrator"
	"github.com/sells-group/sentiment-cli/pkg/analysis"
)

// cloudPreview bounds how many cloud terms table output shows.
const cloudPreview = 15

const maxTextWidth = 60

// formatRows writes rows as a table, most recent first.
func formatRows(out io.Writer, rows []model.ResultRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tLABEL\tSCORE\tSOURCE\tTEXT")
	_, _ = fmt.Fprintln(w, "-\t-----\t-----\t------\t----")

	for i, r := range rows {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%+.2f\t%s\t%s\n",
			i+1,
			r.Label,
			r.Score,
			r.Source,
			truncate(oneLine(r.Text), maxTextWidth),
		)
	}
	_ = w.Flush()
}

// formatCloud writes up to n cloud terms with their weights.
func formatCloud(out io.Writer, cloud []model.TermWeight, n int) {
	if len(cloud) == 0 {
		_, _ = fmt.Fprintln(out, "Cloud is empty.")
		return
	}
	if n > 0 && len(cloud) > n {
		cloud = cloud[:n]
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TERM\tWEIGHT")
	_, _ = fmt.Fprintln(w, "----\t------")
	for _, tw := range cloud {
		_, _ = fmt.Fprintf(w, "%s\t%g\n", tw.Term, tw.Weight)
	}
	_ = w.Flush()
}

// formatSummary writes the KPI block.
func formatSummary(out io.Writer, s model.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Positive:\t%d\n", s.Positive)
	_, _ = fmt.Fprintf(w, "Neutral:\t%d\n", s.Neutral)
	_, _ = fmt.Fprintf(w, "Negative:\t%d\n", s.Negative)
	_, _ = fmt.Fprintf(w, "Avg score:\t%+.3f\n", s.AvgScore)
	_ = w.Flush()
}

// formatOutcome writes what an operation added and the resulting view.
func formatOutcome(out io.Writer, o *orchestrator.Outcome) {
	if o.Failed > 0 {
		_, _ = fmt.Fprintf(out, "Added %d row(s), %d line(s) failed.\n\n", o.Added, o.Failed)
	} else {
		_, _ = fmt.Fprintf(out, "Added %d row(s).\n\n", o.Added)
	}
	formatRows(out, o.Snapshot.Rows)
	_, _ = fmt.Fprintln(out)
	formatCloud(out, o.Snapshot.Cloud, cloudPreview)
}

// writeOutcome renders o as a table or, for csv/json/yaml, as an export.
func writeOutcome(out io.Writer, format string, o *orchestrator.Outcome) error {
	if format == "" || format == "table" {
		formatOutcome(out, o)
		return nil
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	return export.Write(out, f, o.Snapshot)
}

// describeError turns an analysis failure into a one-line message with a hint.
func describeError(err error) string {
	switch analysis.KindOf(err) {
	case analysis.KindInvalidInput:
		return "nothing to analyze: " + err.Error()
	case analysis.KindUnreachable:
		return "analysis service is unreachable; start it or check service.base_url (" + err.Error() + ")"
	case analysis.KindServiceError:
		return "analysis service returned an error: " + err.Error()
	case analysis.KindMalformedResponse:
		return "analysis service sent an unexpected response: " + err.Error()
	case analysis.KindUnsupportedFileType:
		return "unsupported file type; use .txt, .csv, .tsv, .xlsx, .pdf, or .docx"
	default:
		return err.Error()
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
