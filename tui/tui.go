// Package tui is a Bubble Tea chat interface for a segmentation session.
//
// It renders the conversation transcript in a scrollable viewport with a
// single-line input below. Result images arrive as data URLs and are
// announced in the transcript; the rendered files live in the service's
// result directory.
package tui

import (
	"context"

	"github.com/fwojciec/segchat/service"
)

// TurnFunc runs one user turn and returns the service's response. It is
// what the TUI calls when the user submits a message.
type TurnFunc func(ctx context.Context, message string) (*service.ChatResponse, error)

// TurnDoneMsg signals that a turn finished, successfully or not.
type TurnDoneMsg struct {
	Resp *service.ChatResponse
	Err  error
}
