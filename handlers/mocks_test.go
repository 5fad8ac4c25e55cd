package handlers

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
	"github.com/upb/research-mcp/services/providers"
	"github.com/upb/research-mcp/services/tools"
)

// MockUpstream is a mock implementation of providers.Upstream
type MockUpstream struct {
	mock.Mock
}

func (m *MockUpstream) Name() string {
	return "mock"
}

func (m *MockUpstream) ListModels(ctx context.Context) ([]providers.ModelInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.ModelInfo), args.Error(1)
}

func (m *MockUpstream) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ChatResponse), args.Error(1)
}

// MockToolHandler is a mock implementation of mcp.ToolHandler
type MockToolHandler struct {
	mock.Mock
}

func (m *MockToolHandler) Definitions() []tools.Definition {
	args := m.Called()
	return args.Get(0).([]tools.Definition)
}

func (m *MockToolHandler) Call(ctx context.Context, name string, raw json.RawMessage) (interface{}, error) {
	args := m.Called(ctx, name, raw)
	return args.Get(0), args.Error(1)
}
