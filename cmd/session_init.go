package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sentiment-cli/internal/orchestrator"
	"github.com/sells-group/sentiment-cli/internal/store"
	"github.com/sells-group/sentiment-cli/pkg/analysis"
)

// sessionEnv holds the client, store, and orchestrator for one session.
type sessionEnv struct {
	ID           string
	Client       analysis.Client
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
	Log          *zap.Logger
}

// initSession validates client config and wires a fresh session.
func initSession() (*sessionEnv, error) {
	if err := cfg.Validate("client"); err != nil {
		return nil, err
	}

	opts := []analysis.Option{
		analysis.WithTextTransport(analysis.TextTransport(cfg.Service.TextTransport)),
		analysis.WithRateLimit(cfg.Service.RateLimit),
	}
	if cfg.Service.TimeoutSecs > 0 {
		opts = append(opts, analysis.WithTimeout(time.Duration(cfg.Service.TimeoutSecs)*time.Second))
	}
	client := analysis.NewClient(cfg.Service.BaseURL, opts...)

	st := store.New(store.WithCloudSize(cfg.Store.CloudSize))
	orch := orchestrator.New(client, st, nil, orchestrator.Config{
		MaxLines:       cfg.Batch.MaxLines,
		MaxConcurrency: cfg.Batch.MaxConcurrency,
		DemoPolicy:     orchestrator.ParseDemoPolicy(cfg.Store.DemoPolicy),
	})

	id := uuid.NewString()
	log := zap.L().With(zap.String("session", id))
	log.Debug("session started",
		zap.String("base_url", cfg.Service.BaseURL),
		zap.String("text_transport", cfg.Service.TextTransport),
	)

	return &sessionEnv{
		ID:           id,
		Client:       client,
		Store:        st,
		Orchestrator: orch,
		Log:          log,
	}, nil
}

// readUpload loads a file from disk as an upload named by its base name.
func readUpload(path string) (orchestrator.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.Upload{}, eris.Wrapf(err, "read %s", path)
	}
	return orchestrator.Upload{Name: filepath.Base(path), Data: data}, nil
}
