package providers

import (
	"context"
	"time"
)

// Operation labels reported to an Observer.
const (
	OperationListModels     = "list_models"
	OperationChatCompletion = "chat_completion"
)

// Observer receives the timing and outcome of every upstream request.
type Observer interface {
	ObserveUpstream(operation string, duration time.Duration, err error)
}

type instrumented struct {
	Upstream
	observer Observer
}

// Instrument wraps up so each call is reported to observer. A nil observer
// returns up unchanged.
func Instrument(up Upstream, observer Observer) Upstream {
	if observer == nil {
		return up
	}
	return &instrumented{Upstream: up, observer: observer}
}

func (i *instrumented) ListModels(ctx context.Context) ([]ModelInfo, error) {
	start := time.Now()
	models, err := i.Upstream.ListModels(ctx)
	i.observer.ObserveUpstream(OperationListModels, time.Since(start), err)
	return models, err
}

func (i *instrumented) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := i.Upstream.ChatCompletion(ctx, req)
	i.observer.ObserveUpstream(OperationChatCompletion, time.Since(start), err)
	return resp, err
}
