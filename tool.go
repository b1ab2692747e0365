package segchat

import (
	"context"
	"encoding/json"
)

// Tool is the schema sent to the reasoning engine describing a tool's
// capabilities.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolExecutor runs tools against a session. The session is owned by the
// caller for the duration of the call; implementations may mutate its
// artifact counter. Execute returns an error for infrastructure failures;
// ToolResult.Success reports domain outcomes sent back to the engine.
type ToolExecutor interface {
	Execute(ctx context.Context, sess *Session, name string, args json.RawMessage) (*ToolResult, error)
}

// ToolResult is the structurally uniform outcome of a tool execution. It
// is serialized verbatim into the transcript as a tool-result turn so the
// reasoning engine observes it on the next iteration.
type ToolResult struct {
	Success    bool     `json:"success"`
	Detected   []string `json:"detected"`
	NumObjects int      `json:"num_objects"`
	Artifact   string   `json:"artifact,omitempty"`
	Message    string   `json:"message"`
}

// FailedToolResult builds a structured failure result from a message.
func FailedToolResult(msg string) *ToolResult {
	return &ToolResult{Success: false, Detected: []string{}, Message: msg}
}
