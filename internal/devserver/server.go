// Package devserver is a local stand-in for the remote analysis service. It
// serves GET /health and POST /analyze with the same response shapes, scoring
// text with VADER.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sentiment-cli/internal/fetcher"
	"github.com/sells-group/sentiment-cli/internal/model"
)

// DefaultMaxUploadBytes bounds multipart uploads.
const DefaultMaxUploadBytes = 10 << 20

// Options configures the dev server.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server routes analysis requests.
type Server struct {
	opts   Options
	router chi.Router
	log    *zap.Logger
}

// New builds the router.
func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		opts: opts,
		log:  zap.L().With(zap.String("component", "devserver")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "devserver: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "model_loaded": true})
}

type textRequest struct {
	Text string `json:"text"`
}

type flatResponse struct {
	Label model.Label `json:"label"`
	Score float64     `json:"score"`
}

type sentimentBuckets struct {
	Counts       map[model.Label]int `json:"counts"`
	Positive     []string            `json:"positive"`
	Neutral      []string            `json:"neutral"`
	Negative     []string            `json:"negative"`
	KeywordFreqs keywordFreqs        `json:"keyword_freqs"`
}

type keywordFreqs struct {
	Positive orderedCounts `json:"positive"`
	Neutral  orderedCounts `json:"neutral"`
	Negative orderedCounts `json:"negative"`
}

type bucketedResponse struct {
	Summary       string           `json:"summary"`
	TotalComments int              `json:"total_comments"`
	Sentiments    sentimentBuckets `json:"sentiments"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.handleUpload(w, r)
		return
	}

	var req textRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, s.opts.MaxUploadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	score, label := Score(text)
	writeJSON(w, http.StatusOK, flatResponse{Label: label, Score: score})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	name := filepath.Base(header.Filename)
	if fetcher.Classify(name) != fetcher.KindLocal {
		writeError(w, http.StatusBadRequest, "Unsupported file format. Please upload a TXT, CSV, TSV, or XLSX file.")
		return
	}

	lines, err := fetcher.ExtractLines(r.Context(), name, data, 0)
	if err != nil {
		s.log.Debug("extract failed", zap.String("file", name), zap.Error(err))
		writeError(w, http.StatusBadRequest, "could not parse "+name)
		return
	}

	// A single-line text upload answers like a JSON text request.
	if strings.EqualFold(filepath.Ext(name), ".txt") && len(lines) == 1 {
		score, label := Score(lines[0])
		writeJSON(w, http.StatusOK, flatResponse{Label: label, Score: score})
		return
	}

	writeJSON(w, http.StatusOK, bucketize(lines))
}

// bucketize scores each line and groups lines by label.
func bucketize(lines []string) bucketedResponse {
	var b sentimentBuckets
	for _, line := range lines {
		switch _, label := Score(line); label {
		case model.LabelPositive:
			b.Positive = append(b.Positive, line)
		case model.LabelNegative:
			b.Negative = append(b.Negative, line)
		default:
			b.Neutral = append(b.Neutral, line)
		}
	}
	b.Counts = map[model.Label]int{
		model.LabelPositive: len(b.Positive),
		model.LabelNeutral:  len(b.Neutral),
		model.LabelNegative: len(b.Negative),
	}
	b.KeywordFreqs = keywordFreqs{
		Positive: keywordCounts(b.Positive),
		Neutral:  keywordCounts(b.Neutral),
		Negative: keywordCounts(b.Negative),
	}
	if b.Positive == nil {
		b.Positive = []string{}
	}
	if b.Neutral == nil {
		b.Neutral = []string{}
	}
	if b.Negative == nil {
		b.Negative = []string{}
	}

	return bucketedResponse{
		Summary:       summarize(b.Counts, len(lines)),
		TotalComments: len(lines),
		Sentiments:    b,
	}
}

func summarize(counts map[model.Label]int, total int) string {
	if total == 0 {
		return "No comments found in the uploaded file."
	}
	return fmt.Sprintf("Analysis of %d comments: %d positive, %d neutral, %d negative.",
		total, counts[model.LabelPositive], counts[model.LabelNeutral], counts[model.LabelNegative])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("devserver: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
