package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "mnemo/pkg/errors"
	"mnemo/pkg/logger"
)

// LLMAdapter handles communication with the LLM via LiteLLM
type LLMAdapter struct {
	client *openai.Client
	model  string
	mu     sync.RWMutex // Protects model field for concurrent access
	logger *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(baseURL, apiKey, modelID string) *LLMAdapter {
	// For LiteLLM, we can use a dummy API key if not provided
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"

	return &LLMAdapter{
		client: openai.NewClientWithConfig(config),
		model:  modelID,
		logger: logger.Named("llm"),
	}
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Response represents the LLM's response
type Response struct {
	Content string
}

// Generate sends a request to the LLM and returns the response
func (a *LLMAdapter) Generate(ctx context.Context, systemPrompt, userMsg string) (*Response, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userMsg,
		},
	}

	a.mu.RLock()
	currentModel := a.model
	a.mu.RUnlock()

	req := openai.ChatCompletionRequest{
		Model:       currentModel,
		Messages:    messages,
		Temperature: 0.2,
	}

	// Retry logic with backoff
	var resp openai.ChatCompletionResponse
	var err error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", currentModel),
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, apperrors.NewLLMFailed(currentModel, maxRetries, err)
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.ErrLLMNoResponse
	}

	a.logger.Debug("LLM response generated",
		zap.String("model", currentModel),
		zap.Int("content_length", len(resp.Choices[0].Message.Content)),
	)

	return &Response{Content: resp.Choices[0].Message.Content}, nil
}
