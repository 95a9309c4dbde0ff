// Package orchestrator gates analysis behind the liveness cache, dispatches
// text, batch, and file requests, and commits results to the store.
package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sentiment-cli/internal/fetcher"
	"github.com/sells-group/sentiment-cli/internal/model"
	"github.com/sells-group/sentiment-cli/internal/monitoring"
	"github.com/sells-group/sentiment-cli/internal/store"
	"github.com/sells-group/sentiment-cli/pkg/analysis"
)

// Defaults for Config fields left at zero.
const (
	DefaultMaxLines       = 50
	DefaultMaxConcurrency = 8
)

// DemoPolicy decides how demo data meets existing rows.
type DemoPolicy string

const (
	// DemoReplace clears the store before loading demo rows.
	DemoReplace DemoPolicy = "replace"
	// DemoMerge prepends demo rows like any other result.
	DemoMerge DemoPolicy = "merge"
)

// ParseDemoPolicy maps a config value to a policy, defaulting to DemoReplace.
func ParseDemoPolicy(s string) DemoPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(DemoMerge)) {
		return DemoMerge
	}
	return DemoReplace
}

// Config bounds batch work and picks the demo policy.
type Config struct {
	MaxLines       int
	MaxConcurrency int
	DemoPolicy     DemoPolicy
}

func (c Config) withDefaults() Config {
	if c.MaxLines <= 0 {
		c.MaxLines = DefaultMaxLines
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.DemoPolicy == "" {
		c.DemoPolicy = DemoReplace
	}
	return c
}

// Upload is a file handed to AnalyzeUploadedFile.
type Upload struct {
	Name string
	Data []byte
}

// Outcome is the view after a successful operation.
type Outcome struct {
	Snapshot model.Snapshot
	Added    int
	Failed   int
}

// Orchestrator is the entry point for all analysis operations. Its methods
// are safe for concurrent use; independent operations commit in completion order.
type Orchestrator struct {
	client   analysis.Client
	store    *store.Store
	liveness *monitoring.Liveness
	cfg      Config
	busy     atomic.Int32
	log      *zap.Logger
}

// New creates an orchestrator. A nil liveness cache probes client.
func New(client analysis.Client, st *store.Store, live *monitoring.Liveness, cfg Config) *Orchestrator {
	if live == nil {
		live = monitoring.NewLiveness(client)
	}
	return &Orchestrator{
		client:   client,
		store:    st,
		liveness: live,
		cfg:      cfg.withDefaults(),
		log:      zap.L().With(zap.String("component", "orchestrator")),
	}
}

// Busy reports whether any operation is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load() > 0
}

// Liveness returns the cached service state.
func (o *Orchestrator) Liveness() monitoring.State {
	return o.liveness.State()
}

// ResetLiveness forgets the cached state so the next operation probes again.
func (o *Orchestrator) ResetLiveness() {
	o.liveness.Reset()
}

// Snapshot returns a copy of the current rows and cloud.
func (o *Orchestrator) Snapshot() model.Snapshot {
	return o.store.Snapshot()
}

// Summary aggregates the current rows.
func (o *Orchestrator) Summary() model.Summary {
	return o.store.Summary()
}

// Clear drops every stored row and the cloud.
func (o *Orchestrator) Clear() {
	o.store.Clear()
}

// Filter returns stored rows matching label and query.
func (o *Orchestrator) Filter(label model.Label, query string) []model.ResultRow {
	return o.store.Filter(label, query)
}

// AnalyzeSingleText analyzes one text and prepends its rows.
func (o *Orchestrator) AnalyzeSingleText(ctx context.Context, text string) (*Outcome, error) {
	defer o.enter()()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, analysis.NewError(analysis.KindInvalidInput, "orchestrator: text is empty", nil)
	}
	if err := o.ensureLive(ctx); err != nil {
		return nil, err
	}

	res, err := o.client.AnalyzeText(ctx, text)
	if err != nil {
		o.log.Debug("analyze text failed", zap.Error(err))
		return nil, err
	}

	rows := withSource(res.Rows, model.SourceManual)
	o.store.AppendWithTallies(rows, res.Tallies)
	return o.outcome(len(rows), 0), nil
}

// AnalyzeUploadedFile analyzes an upload. Local formats are split into lines
// and analyzed line by line; PDF and DOCX go to the service whole.
func (o *Orchestrator) AnalyzeUploadedFile(ctx context.Context, up Upload) (*Outcome, error) {
	defer o.enter()()

	switch fetcher.Classify(up.Name) {
	case fetcher.KindLocal:
		return o.analyzeLines(ctx, up)
	case fetcher.KindRemote:
		return o.analyzeRemote(ctx, up)
	default:
		return nil, analysis.NewError(analysis.KindUnsupportedFileType, "orchestrator: unsupported file type "+up.Name, nil)
	}
}

func (o *Orchestrator) analyzeRemote(ctx context.Context, up Upload) (*Outcome, error) {
	if len(up.Data) == 0 {
		return nil, analysis.NewError(analysis.KindInvalidInput, "orchestrator: empty file "+up.Name, nil)
	}
	if err := o.ensureLive(ctx); err != nil {
		return nil, err
	}

	res, err := o.client.AnalyzeFile(ctx, up.Data, up.Name)
	if err != nil {
		o.log.Debug("analyze file failed", zap.String("file", up.Name), zap.Error(err))
		return nil, err
	}

	rows := withSource(res.Rows, model.SourceUpload)
	o.store.AppendWithTallies(rows, res.Tallies)
	return o.outcome(len(rows), 0), nil
}

// lineResult holds one line's outcome at its line index.
type lineResult struct {
	res *analysis.Result
	err error
}

func (o *Orchestrator) analyzeLines(ctx context.Context, up Upload) (*Outcome, error) {
	lines, err := fetcher.ExtractLines(ctx, up.Name, up.Data, o.cfg.MaxLines)
	if err != nil {
		return nil, analysis.NewError(analysis.KindInvalidInput, "orchestrator: read "+up.Name, err)
	}
	if len(lines) == 0 {
		return nil, analysis.NewError(analysis.KindInvalidInput, "orchestrator: no text lines in "+up.Name, nil)
	}
	if err := o.ensureLive(ctx); err != nil {
		return nil, err
	}

	results := make([]lineResult, len(lines))
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrency)
	for i, line := range lines {
		g.Go(func() error {
			res, err := o.client.AnalyzeText(ctx, line)
			results[i] = lineResult{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		rows     []model.ResultRow
		tallies  model.Tallies
		failed   int
		firstErr error
	)
	for i, r := range results {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			o.log.Debug("line failed", zap.String("file", up.Name), zap.Int("line", i+1), zap.Error(r.err))
			continue
		}
		rows = append(rows, withSource(r.res.Rows, model.SourceUpload)...)
		tallies = mergeTallies(tallies, r.res.Tallies)
	}

	if failed == len(lines) {
		return nil, firstErr
	}
	if failed > 0 {
		o.log.Warn("some lines failed", zap.String("file", up.Name), zap.Int("failed", failed), zap.Int("lines", len(lines)))
	}

	o.store.AppendWithTallies(rows, tallies)
	return o.outcome(len(rows), failed), nil
}

// LoadDemoData loads the fixed demo rows and cloud. It never contacts the service.
func (o *Orchestrator) LoadDemoData() (*Outcome, error) {
	defer o.enter()()

	rows, tallies := demoData()
	if o.cfg.DemoPolicy == DemoMerge {
		o.store.AppendWithTallies(rows, tallies)
	} else {
		o.store.Replace(rows, tallies)
	}
	return o.outcome(len(rows), 0), nil
}

func (o *Orchestrator) ensureLive(ctx context.Context) error {
	if o.liveness.Ensure(ctx) {
		return nil
	}
	return analysis.NewError(analysis.KindUnreachable, "orchestrator: analysis service is unreachable", nil)
}

func (o *Orchestrator) enter() func() {
	o.busy.Add(1)
	return func() { o.busy.Add(-1) }
}

func (o *Orchestrator) outcome(added, failed int) *Outcome {
	return &Outcome{Snapshot: o.store.Snapshot(), Added: added, Failed: failed}
}

func withSource(rows []model.ResultRow, source string) []model.ResultRow {
	out := make([]model.ResultRow, len(rows))
	for i, r := range rows {
		r.Source = source
		out[i] = r
	}
	return out
}

// mergeTallies appends b's buckets after a's, keeping label order.
func mergeTallies(a, b model.Tallies) model.Tallies {
	if b.Empty() {
		return a
	}
	if a == nil {
		a = model.Tallies{}
	}
	for _, l := range model.AllLabels() {
		if len(b[l]) > 0 {
			a[l] = append(a[l], b[l]...)
		}
	}
	return a
}
