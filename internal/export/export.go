// Package export writes the session view to CSV, JSON, or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sentiment-cli/internal/model"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// csvColumns defines the ordered CSV output columns.
var csvColumns = []string{"text", "label", "score", "source", "observed_at"}

// ParseFormat maps a name ("csv", "json", "yaml" or "yml") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", eris.Errorf("export: no extension on %q", path)
	}
	return ParseFormat(ext)
}

// Write encodes snap in format. CSV carries the rows only; JSON and YAML
// also carry the cloud and summary.
func Write(w io.Writer, format Format, snap model.Snapshot) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, snap.Rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newDocument(snap)); err != nil {
			return eris.Wrap(err, "export: encode json")
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newDocument(snap)); err != nil {
			return eris.Wrap(err, "export: encode yaml")
		}
		return eris.Wrap(enc.Close(), "export: close yaml")
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []model.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, r := range rows {
		rec := []string{
			r.Text,
			string(r.Label),
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			r.Source,
			r.ObservedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// ToFile writes snap to path, picking the format from its extension.
func ToFile(path string, snap model.Snapshot) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	if err := Write(f, format, snap); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "export: close file")
}

type document struct {
	Summary model.Summary      `json:"summary" yaml:"summary"`
	Rows    []model.ResultRow  `json:"rows" yaml:"rows"`
	Cloud   []model.TermWeight `json:"cloud" yaml:"cloud"`
}

func newDocument(snap model.Snapshot) document {
	doc := document{
		Summary: model.Summarize(snap.Rows),
		Rows:    snap.Rows,
		Cloud:   snap.Cloud,
	}
	if doc.Rows == nil {
		doc.Rows = []model.ResultRow{}
	}
	if doc.Cloud == nil {
		doc.Cloud = []model.TermWeight{}
	}
	return doc
}
