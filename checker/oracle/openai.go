package oracle

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI asks an OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	topP        float32
}

func NewOpenAI(opts Options) *OpenAI {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.URL != "" {
		cfg.BaseURL = opts.URL
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: float32(opts.Temperature),
		topP:        float32(opts.TopP),
	}
}

func (o *OpenAI) ResolveEntityNames(ctx context.Context, methods []string, source string) (map[string]string, error) {
	if len(methods) == 0 {
		return map[string]string{}, nil
	}
	text, err := o.complete(ctx, entityPrompt(methods, source))
	if err != nil {
		return map[string]string{}, err
	}
	return restrict(ParseMapping(text), methods), nil
}

func (o *OpenAI) ResolveConstraints(ctx context.Context, operations []string, policyRefs []string, source string) (map[string]string, error) {
	if len(operations) == 0 {
		return map[string]string{}, nil
	}
	text, err := o.complete(ctx, constraintPrompt(operations, policyRefs, source))
	if err != nil {
		return map[string]string{}, err
	}
	return restrict(ParseMapping(text), operations), nil
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		TopP:        o.topP,
	})
	if err != nil {
		logger.Error("Chat completion failed", zap.String("model", o.model), zap.Error(err))
		return "", fmt.Errorf("%w: %v", permcheck_errors.ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", permcheck_errors.ErrOracleUnavailable)
	}

	logger.Debug("Chat completion received",
		zap.String("model", o.model),
		zap.Int("totalTokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}
