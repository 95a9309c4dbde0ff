// Package fetcher classifies uploaded files and decodes the locally readable
// ones (plain text, CSV/TSV, XLSX) into lines.
package fetcher

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FileKind describes how an upload is handled.
type FileKind int

const (
	// KindUnsupported cannot be analyzed.
	KindUnsupported FileKind = iota
	// KindLocal is decoded into lines on the client.
	KindLocal
	// KindRemote is handed to the analysis service for parsing.
	KindRemote
)

func (k FileKind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	default:
		return "unsupported"
	}
}

var fileKinds = map[string]FileKind{
	".txt":  KindLocal,
	".csv":  KindLocal,
	".tsv":  KindLocal,
	".xlsx": KindLocal,
	".pdf":  KindRemote,
	".docx": KindRemote,
}

// commentColumns are header names that mark the column holding free text.
var commentColumns = []string{"comment", "comments", "text", "response", "feedback", "remark"}

// Classify returns how filename should be processed, by extension.
func Classify(filename string) FileKind {
	return fileKinds[strings.ToLower(filepath.Ext(filename))]
}

// ExtractLines decodes a locally readable upload and returns up to limit
// non-empty, trimmed lines (limit <= 0 returns all).
func ExtractLines(ctx context.Context, filename string, data []byte, limit int) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt":
		text, err := DecodeText(data)
		if err != nil {
			return nil, err
		}
		return SplitLines(text, limit), nil
	case ".csv", ".tsv":
		delim := ','
		if ext == ".tsv" {
			delim = '\t'
		}
		return delimitedLines(ctx, data, delim, limit)
	case ".xlsx":
		rows, err := ReadXLSX(data, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		return recordLines(rows, ", ", limit), nil
	default:
		return nil, eris.Errorf("fetcher: %s is not decodable locally", filename)
	}
}

// DecodeText converts raw bytes to UTF-8, honoring a UTF-8 or UTF-16 byte
// order mark. Invalid UTF-8 is replaced rather than rejected.
func DecodeText(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: decode text")
	}
	return string(out), nil
}

// SplitLines splits on \n or \r\n, trims, drops empty lines, and keeps at
// most limit lines.
func SplitLines(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// delimitedLines handles CSV/TSV. A recognized comment header selects that
// column from the parsed records; otherwise each physical line is kept as
// written, skipping lines whose cells are all blank. Unparseable input falls
// back to plain line splitting.
func delimitedLines(ctx context.Context, data []byte, delim rune, limit int) ([]string, error) {
	text, err := DecodeText(data)
	if err != nil {
		return nil, err
	}

	opts := CSVOptions{Delimiter: delim, LazyQuotes: true, TrimSpace: true}
	head, err := ReadCSV(ctx, strings.NewReader(text), opts, 1)
	if err != nil {
		return parseFallback(ctx, err, text, limit)
	}
	if len(head) == 0 || commentColumn(head[0]) < 0 {
		return delimitedRawLines(text, delim, limit), nil
	}

	// Blank records are dropped before the limit applies, so read them all.
	rows, err := ReadCSV(ctx, strings.NewReader(text), opts, 0)
	if err != nil {
		return parseFallback(ctx, err, text, limit)
	}
	return recordLines(rows, string(delim), limit), nil
}

func parseFallback(ctx context.Context, err error, text string, limit int) ([]string, error) {
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "fetcher: read delimited file")
	}
	zap.L().Debug("fetcher: delimited parse failed, using plain lines", zap.Error(err))
	return SplitLines(text, limit), nil
}

// delimitedRawLines is SplitLines minus lines made only of delimiters,
// quotes, and whitespace.
func delimitedRawLines(text string, delim rune, limit int) []string {
	blank := string(delim) + "\" \t\r"
	var out []string
	for _, line := range SplitLines(text, 0) {
		if strings.Trim(line, blank) == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// recordLines flattens tabular rows into lines.
func recordLines(rows [][]string, sep string, limit int) []string {
	col := -1
	if len(rows) > 0 {
		col = commentColumn(rows[0])
	}
	if col >= 0 {
		rows = rows[1:]
	}

	var out []string
	for _, rec := range rows {
		var line string
		if col >= 0 {
			if col < len(rec) {
				line = rec[col]
			}
		} else {
			line = joinFields(rec, sep)
		}

		line = strings.TrimSpace(strings.ReplaceAll(line, "\n", " "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func commentColumn(header []string) int {
	for _, name := range commentColumns {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

// joinFields joins fields with sep, dropping trailing empty cells.
func joinFields(fields []string, sep string) string {
	end := len(fields)
	for end > 0 && strings.TrimSpace(fields[end-1]) == "" {
		end--
	}
	var b bytes.Buffer
	for i, f := range fields[:end] {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(strings.TrimSpace(f))
	}
	return b.String()
}
