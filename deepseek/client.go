// Package deepseek implements [segchat.Provider] for the DeepSeek API.
//
// DeepSeek exposes an OpenAI-compatible chat completions endpoint, so the
// client speaks that wire format directly, including function-style tool
// calls.
package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/segchat"
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"
)

// Interface compliance check.
var _ segchat.Provider = (*Client)(nil)

// Client implements [segchat.Provider] against an OpenAI-compatible
// chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL points the client at a different OpenAI-compatible server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithModel sets the model ID. Default is deepseek-chat.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a new DeepSeek [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   defaultModel,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OpenAI-compatible wire types.

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the conversation to the chat completions endpoint and
// returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, req segchat.Request) (segchat.AssistantMessage, error) {
	if err := req.Validate(); err != nil {
		return segchat.AssistantMessage{}, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	payload := chatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(req.SystemPrompt, req.Messages),
		Tools:       convertTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
	}

	body, err := c.sendRequest(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return segchat.AssistantMessage{}, &segchat.UpstreamError{Service: "deepseek", Err: err}
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return segchat.AssistantMessage{}, &segchat.UpstreamError{
			Service: "deepseek",
			Err:     fmt.Errorf("parsing response: %w", err),
		}
	}
	if len(resp.Choices) == 0 {
		return segchat.AssistantMessage{}, &segchat.UpstreamError{
			Service: "deepseek",
			Err:     fmt.Errorf("response has no choices"),
		}
	}

	msg := segchat.AssistantMessage{
		Usage: segchat.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Timestamp: time.Now(),
	}
	choice := resp.Choices[0].Message
	if choice.Content != "" {
		msg.Content = append(msg.Content, segchat.TextBlock{Text: choice.Content})
	}
	for _, tc := range choice.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		msg.Content = append(msg.Content, segchat.ToolCallBlock{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return msg, nil
}

// convertMessages converts the system prompt and domain messages into
// OpenAI-compatible chat messages.
func convertMessages(systemPrompt string, msgs []segchat.Message) []chatMessage {
	var result []chatMessage
	if systemPrompt != "" {
		result = append(result, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range msgs {
		switch m := msg.(type) {
		case segchat.UserMessage:
			result = append(result, chatMessage{Role: "user", Content: blocksText(m.Content)})
		case segchat.AssistantMessage:
			cm := chatMessage{Role: "assistant", Content: m.Text()}
			for _, tc := range m.ToolCalls() {
				cm.ToolCalls = append(cm.ToolCalls, wireToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: wireFunction{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			result = append(result, cm)
		case segchat.ToolResultMessage:
			result = append(result, chatMessage{
				Role:       "tool",
				Content:    blocksText(m.Content),
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return result
}

func blocksText(blocks []segchat.ContentBlock) string {
	var out string
	for _, b := range blocks {
		if tb, ok := b.(segchat.TextBlock); ok {
			out += tb.Text
		}
	}
	return out
}

func convertTools(tools []segchat.Tool) []wireTool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]wireTool, len(tools))
	for i, t := range tools {
		result[i] = wireTool{
			Type: "function",
			Function: wireToolSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
