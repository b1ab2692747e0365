// Package agent orchestrates the conversation loop between a Provider
// and a ToolExecutor over sessions held in a session store.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/store"
)

// DefaultMaxIterations bounds the number of provider round-trips in a
// single turn. A turn that is still requesting tools after the last
// iteration is cut off with a timeout answer.
const DefaultMaxIterations = 5

// TimeoutAnswer is the assistant text returned when a turn exhausts its
// iteration budget without producing a plain-text answer.
const TimeoutAnswer = "Processing timed out."

// TurnState reports how a turn ended.
type TurnState string

const (
	// TurnRunning means the turn is still executing tool calls.
	TurnRunning TurnState = "running"
	// TurnAnswered means the assistant replied with plain text.
	TurnAnswered TurnState = "answered"
	// TurnTimedOut means the iteration budget ran out mid-loop.
	TurnTimedOut TurnState = "timed_out"
)

// TurnResult is the outcome of a single user turn.
type TurnResult struct {
	State TurnState
	// Answer is the assistant's final text. On timeout it is the fixed
	// TimeoutAnswer string.
	Answer string
	// Artifacts lists the result image names produced by tool calls
	// during this turn, in production order.
	Artifacts []string
	// Usage is the token usage summed over all provider calls.
	Usage segchat.Usage
}

// Loop drives the detect/confirm conversation: it sends the session
// history to the provider, executes any requested tool calls, feeds the
// results back, and repeats until the assistant answers in plain text
// or the iteration budget runs out.
type Loop struct {
	provider      segchat.Provider
	executor      segchat.ToolExecutor
	sessions      *store.SessionStore
	tools         []segchat.Tool
	model         string
	maxIterations int
	logger        *zap.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithModel sets the model ID for provider requests. Empty string means
// the provider uses its default model.
func WithModel(model string) Option {
	return func(l *Loop) { l.model = model }
}

// WithMaxIterations overrides the per-turn iteration budget.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loop over the given provider, executor, session store
// and tool definitions.
func New(provider segchat.Provider, executor segchat.ToolExecutor, sessions *store.SessionStore, tools []segchat.Tool, opts ...Option) *Loop {
	l := &Loop{
		provider:      provider,
		executor:      executor,
		sessions:      sessions,
		tools:         tools,
		maxIterations: DefaultMaxIterations,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes one user turn against the named session. It acquires the
// session for the duration of the turn, so concurrent turns on the same
// session serialize while other sessions proceed in parallel. All
// intermediate messages are appended to the session history.
func (l *Loop) Run(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	sess, release, err := l.sessions.Acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess.Append(segchat.UserMessage{
		Content:   []segchat.ContentBlock{segchat.TextBlock{Text: message}},
		Timestamp: time.Now(),
	})

	result := &TurnResult{State: TurnRunning}
	for i := 0; i < l.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := l.provider.Complete(ctx, segchat.Request{
			Model:        l.model,
			SystemPrompt: sess.SystemPrompt,
			Messages:     sess.Messages,
			Tools:        l.tools,
		})
		if err != nil {
			return nil, err
		}

		sess.Append(msg)
		result.Usage.InputTokens += msg.Usage.InputTokens
		result.Usage.OutputTokens += msg.Usage.OutputTokens

		calls := msg.ToolCalls()
		if len(calls) == 0 {
			result.State = TurnAnswered
			result.Answer = msg.Text()
			return result, nil
		}

		for _, tc := range calls {
			l.dispatch(ctx, sess, tc, result)
		}
	}

	l.logger.Warn("turn exceeded iteration budget",
		zap.String("session_id", sessionID),
		zap.Int("max_iterations", l.maxIterations),
	)
	sess.Append(segchat.AssistantMessage{
		Content:   []segchat.ContentBlock{segchat.TextBlock{Text: TimeoutAnswer}},
		Timestamp: time.Now(),
	})
	result.State = TurnTimedOut
	result.Answer = TimeoutAnswer
	return result, nil
}

// dispatch executes a single tool call and appends its result to the
// session. Executor errors do not abort the turn: they become failed
// tool results so the provider can react to them.
func (l *Loop) dispatch(ctx context.Context, sess *segchat.Session, tc segchat.ToolCallBlock, result *TurnResult) {
	res, err := l.executor.Execute(ctx, sess, tc.Name, tc.Arguments)
	if err != nil {
		l.logger.Warn("tool execution failed",
			zap.String("session_id", sess.ID),
			zap.String("tool", tc.Name),
			zap.Error(err),
		)
		res = segchat.FailedToolResult(err.Error())
	}

	if res.Artifact != "" {
		result.Artifacts = append(result.Artifacts, res.Artifact)
	}

	payload, err := json.Marshal(res)
	if err != nil {
		// ToolResult is a plain struct; this cannot happen in practice.
		payload = []byte(`{"success": false, "message": "internal: unencodable tool result"}`)
	}

	sess.Append(segchat.ToolResultMessage{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Content:    []segchat.ContentBlock{segchat.TextBlock{Text: string(payload)}},
		IsError:    !res.Success,
		Timestamp:  time.Now(),
	})
}
