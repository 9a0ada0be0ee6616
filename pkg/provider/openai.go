package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider against an OpenAI-compatible
// chat-completions backend (spec §4.1). It is safe for use by the agents
// of a single engine but, per spec §3 "Ownership", is never called
// concurrently by more than one orchestrator.
type OpenAIProvider struct {
	client *openai.Client
	model  string

	mu               sync.Mutex
	lastReasoning    string
	lastReasonTokens int
}

// NewOpenAIProvider constructs a provider for the given model, talking to
// either the public OpenAI API (baseURL == "") or an OpenAI-compatible
// endpoint (baseURL set, e.g. a local or self-hosted gateway).
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt, systemPrompt string, temperature float32, opts CompleteOptions) (string, error) {
	messages := buildMessages(systemPrompt, prompt)

	if opts.Stream {
		text, err := p.completeStreaming(ctx, messages, temperature, opts)
		if err == nil {
			return text, nil
		}
		slog.Warn("streaming completion failed, falling back to non-streaming", "error", err)
		// Fall through to non-streaming retry per spec §4.1: "transparently
		// retry the same logical request in non-streaming mode."
	}

	var resp *openai.ChatCompletionResponse
	err := withRetry(ctx, defaultBackoff, func() error {
		r, callErr := p.createChatCompletion(ctx, messages, temperature, opts, nil)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", err
	}
	return p.extractContent(resp)
}

// CompleteWithFunctions implements Provider.
func (p *OpenAIProvider) CompleteWithFunctions(ctx context.Context, prompt, systemPrompt string, temperature float32, tools []ToolDefinition) (*Response, error) {
	messages := buildMessages(systemPrompt, prompt)

	var resp *openai.ChatCompletionResponse
	err := withRetry(ctx, defaultBackoff, func() error {
		r, callErr := p.createChatCompletion(ctx, messages, temperature, CompleteOptions{}, toOpenAITools(tools))
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	content, err := p.extractContent(resp)
	if err != nil {
		return nil, err
	}

	out := &Response{Content: content}
	if len(resp.Choices) > 0 {
		for _, tc := range resp.Choices[0].Message.ToolCalls {
			out.FunctionCalls = append(out.FunctionCalls, FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return out, nil
}

// CountTokens implements Provider with a deterministic heuristic: roughly
// one token per four characters, floored by whitespace-separated word
// count. Exact BPE tokenization is out of scope (spec §4.1: "approximate").
func (p *OpenAIProvider) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	byChars := len(text) / 4
	words := len(strings.Fields(text))
	if words > byChars {
		return words
	}
	return byChars
}

// LastReasoningSummary implements Provider.
func (p *OpenAIProvider) LastReasoningSummary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReasoning
}

// LastReasoningTokens implements Provider.
func (p *OpenAIProvider) LastReasoningTokens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReasonTokens
}

// ContinueConversation implements ConversationContinuer. This backend keeps
// no server-side conversation state, so continuation is a fresh completion
// seeded from the follow-up text alone (spec §4.1, §9).
func (p *OpenAIProvider) ContinueConversation(ctx context.Context, followup string, opts CompleteOptions) (string, error) {
	return p.Complete(ctx, followup, "", 0.7, opts)
}

// ContinueFunctionCalling implements ConversationContinuer, folding the
// supplied tool outputs into a synthetic follow-up message.
func (p *OpenAIProvider) ContinueFunctionCalling(ctx context.Context, outputs []FunctionOutput, opts CompleteOptions) (string, error) {
	var b strings.Builder
	for _, o := range outputs {
		fmt.Fprintf(&b, "[%s result] %s\n", o.Name, o.Content)
	}
	return p.Complete(ctx, b.String(), "", 0.7, opts)
}

func (p *OpenAIProvider) completeStreaming(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, opts CompleteOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      true,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", classifyErr(err)
	}
	defer stream.Close()

	var text, reasoning strings.Builder
	var usage *openai.Usage
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", classifyErr(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		text.WriteString(delta.Content)
		if delta.ReasoningContent != "" {
			reasoning.WriteString(delta.ReasoningContent)
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}
	p.recordUsage(usage, reasoning.String())

	if text.Len() == 0 && reasoning.Len() > 0 {
		// Reasoning-fallback (spec §4.1): empty textual content but
		// non-empty reasoning text — return the reasoning as content.
		return reasoning.String(), nil
	}
	if text.Len() == 0 {
		return "", &Error{Kind: ErrTransient, Err: fmt.Errorf("empty streamed response")}
	}
	return text.String(), nil
}

func (p *OpenAIProvider) createChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, opts CompleteOptions, tools []openai.Tool) (*openai.ChatCompletionResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
		Tools:       tools,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyErr(err)
	}
	return &resp, nil
}

func (p *OpenAIProvider) extractContent(resp *openai.ChatCompletionResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", &Error{Kind: ErrTransient, Err: fmt.Errorf("no choices in response")}
	}
	msg := resp.Choices[0].Message
	content := msg.Content

	reasoning := msg.ReasoningContent
	p.recordUsage(&resp.Usage, reasoning)

	if content == "" && reasoning != "" {
		// Reasoning-fallback (spec §4.1).
		return reasoning, nil
	}
	if content == "" {
		return "", &Error{Kind: ErrTransient, Err: fmt.Errorf("empty content response")}
	}
	return content, nil
}

func (p *OpenAIProvider) recordUsage(usage *openai.Usage, reasoning string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastReasoning = reasoning
	p.lastReasonTokens = 0
	if usage != nil && usage.CompletionTokensDetails != nil {
		p.lastReasonTokens = usage.CompletionTokensDetails.ReasoningTokens
	}
}

func buildMessages(systemPrompt, prompt string) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	return messages
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
				Strict:      t.Strict,
			},
		})
	}
	return out
}

// classifyErr maps a go-openai error into our ProviderError kinds
// (spec §7): HTTP 429 → RateLimitError, 5xx/network → TransientProviderError,
// any other API status → ErrProvider (not retried), and any other error
// value → ErrTransient.
func classifyErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &Error{Kind: ErrRateLimited, Err: apiErr}
		case apiErr.HTTPStatusCode >= 500:
			return &Error{Kind: ErrTransient, Err: apiErr}
		default:
			return &Error{Kind: ErrProvider, Err: apiErr}
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: ErrTransient, Err: reqErr}
	}

	return &Error{Kind: ErrTransient, Err: err}
}
