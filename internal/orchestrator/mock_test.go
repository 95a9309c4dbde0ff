package orchestrator

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/sentiment-cli/pkg/analysis"
)

// --- Analysis Client Mock ---

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockClient) AnalyzeText(ctx context.Context, text string) (*analysis.Result, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Result), args.Error(1)
}

func (m *mockClient) AnalyzeFile(ctx context.Context, payload []byte, filename string) (*analysis.Result, error) {
	args := m.Called(ctx, payload, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Result), args.Error(1)
}
