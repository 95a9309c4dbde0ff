package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sentiment-cli/internal/model"
)

func TestHealth_OK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).Health(context.Background()))
}

func TestHealth_NonSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindServiceError, KindOf(err))
}

func TestHealth_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindUnreachable, KindOf(err))
}

func TestAnalyzeText_JSONTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "great service", req["text"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"label":"positive","score":0.87}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).AnalyzeText(context.Background(), "  great service \n")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "great service", res.Rows[0].Text)
	assert.Equal(t, model.LabelPositive, res.Rows[0].Label)
	assert.InDelta(t, 0.87, res.Rows[0].Score, 0.0001)
	assert.Nil(t, res.Tallies)
}

func TestAnalyzeText_FileTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, TextFilename, header.Filename)
		assert.Contains(t, header.Header.Get("Content-Type"), "text/plain")

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "great service", string(data))

		w.Write([]byte(`{"label":"positive","score":0.87}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithTextTransport(TransportFile))
	res, err := client.AnalyzeText(context.Background(), "great service")
	require.NoError(t, err)

	jsonSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"positive","score":0.87}`))
	}))
	defer jsonSrv.Close()

	viaJSON, err := NewClient(jsonSrv.URL).AnalyzeText(context.Background(), "great service")
	require.NoError(t, err)
	assert.Equal(t, viaJSON, res)
}

func TestAnalyzeText_EmptyInputSkipsService(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).AnalyzeText(context.Background(), "   \t\n")
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestAnalyzeText_ServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Unsupported file format. Please upload a PDF or CSV."}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).AnalyzeText(context.Background(), "hello there")
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindServiceError, ae.Kind)
	assert.Equal(t, http.StatusBadRequest, ae.StatusCode)
	assert.Contains(t, ae.Body, "Unsupported file format")
	assert.Contains(t, err.Error(), "400")
}

func TestAnalyzeText_NoRetryOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).AnalyzeText(context.Background(), "hello there")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyzeText_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).AnalyzeText(context.Background(), "hello there")
	require.Error(t, err)
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestAnalyzeText_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).AnalyzeText(context.Background(), "hello there")
	require.Error(t, err)
	assert.Equal(t, KindUnreachable, KindOf(err))
}

func TestAnalyzeText_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"label":"neutral","score":0}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithTimeout(20*time.Millisecond)).AnalyzeText(context.Background(), "slow one")
	require.Error(t, err)
	assert.Equal(t, KindUnreachable, KindOf(err))
}

func TestAnalyzeFile_Bucketed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		file.Close()
		assert.Equal(t, "report.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))

		w.Write([]byte(`{
			"summary": "Analysis of 3 stakeholder comments across 1 section(s).",
			"sentiments": {
				"counts": {"positive": 1, "negative": 1, "neutral": 1},
				"positive": ["Strongly support the draft"],
				"negative": ["Compliance cost is too high"],
				"neutral": ["Please clarify section 4"]
			},
			"keyword_freqs": {
				"positive": {"support": 3, "draft": 1},
				"negative": {"cost": 2, "compliance": 1}
			}
		}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).AnalyzeFile(context.Background(), []byte("%PDF-1.4"), "report.pdf")
	require.NoError(t, err)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, model.ResultRow{Text: "Strongly support the draft", Label: model.LabelPositive, Score: 1}, res.Rows[0])
	assert.Equal(t, model.ResultRow{Text: "Please clarify section 4", Label: model.LabelNeutral, Score: 0}, res.Rows[1])
	assert.Equal(t, model.ResultRow{Text: "Compliance cost is too high", Label: model.LabelNegative, Score: -1}, res.Rows[2])

	assert.Equal(t, []model.TermCount{{Term: "support", Count: 3}, {Term: "draft", Count: 1}}, res.Tallies[model.LabelPositive])
	assert.Equal(t, []model.TermCount{{Term: "cost", Count: 2}, {Term: "compliance", Count: 1}}, res.Tallies[model.LabelNegative])
}

func TestAnalyzeFile_FlatUsesFilename(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"NEGATIVE","score":-0.4}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).AnalyzeFile(context.Background(), []byte("data"), "notes.docx")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "notes.docx", res.Rows[0].Text)
	assert.Equal(t, model.LabelNegative, res.Rows[0].Label)
}

func TestAnalyzeFile_InvalidInput(t *testing.T) {
	t.Parallel()

	client := NewClient("http://127.0.0.1:1")

	_, err := client.AnalyzeFile(context.Background(), nil, "a.pdf")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = client.AnalyzeFile(context.Background(), []byte("x"), " ")
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"neutral","score":0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRateLimit(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.AnalyzeText(context.Background(), "tick tock")
		require.NoError(t, err)
	}
	// Burst of 20 covers three requests without waiting.
	assert.Less(t, time.Since(start), 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limited := NewClient(srv.URL, WithRateLimit(0.001))
	_, err := limited.AnalyzeText(ctx, "first")
	require.Error(t, err)
}
