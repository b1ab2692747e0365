package tui_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/segchat/agent"
	"github.com/fwojciec/segchat/service"
	"github.com/fwojciec/segchat/tui"
)

func newReadyModel(t *testing.T, turn tui.TurnFunc) tui.Model {
	t.Helper()
	m := tui.New(turn)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(tui.Model)
}

// submit types text into the input and presses enter.
func submit(t *testing.T, m tui.Model, text string) (tui.Model, tea.Cmd) {
	t.Helper()
	m.Input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(tui.Model), cmd
}

func TestModel_NotReadyBeforeWindowSize(t *testing.T) {
	t.Parallel()

	m := tui.New(nil)
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_SubmitStartsTurn(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, func(_ context.Context, msg string) (*service.ChatResponse, error) {
		return &service.ChatResponse{Answer: "echo: " + msg, State: agent.TurnAnswered}, nil
	})

	m, cmd := submit(t, m, "find the dog")
	require.NotNil(t, cmd)
	assert.True(t, m.Running())
	assert.Contains(t, m.View(), "> find the dog")
	assert.Contains(t, m.View(), "Segmenting...")

	// The command runs the turn and reports back.
	msg := cmd()
	done, ok := msg.(tui.TurnDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	assert.Equal(t, "echo: find the dog", done.Resp.Answer)

	updated, _ := m.Update(done)
	m = updated.(tui.Model)
	assert.False(t, m.Running())
	assert.Contains(t, m.View(), "echo: find the dog")
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, nil)
	m, cmd := submit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.Running())
}

func TestModel_EnterIgnoredWhileRunning(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, func(_ context.Context, _ string) (*service.ChatResponse, error) {
		return &service.ChatResponse{Answer: "ok", State: agent.TurnAnswered}, nil
	})
	m, _ = submit(t, m, "first")
	require.True(t, m.Running())

	m, cmd := submit(t, m, "second")
	assert.Nil(t, cmd)
	assert.NotContains(t, m.View(), "> second")
}

func TestModel_ImagesAnnounced(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, nil)
	m, _ = submit(t, m, "segment the dog")

	updated, _ := m.Update(tui.TurnDoneMsg{Resp: &service.ChatResponse{
		Answer: "Done.",
		State:  agent.TurnAnswered,
		Images: []string{"data:image/jpeg;base64,AAAA", "data:image/jpeg;base64,BBBB"},
	}})
	m = updated.(tui.Model)

	assert.Contains(t, m.View(), "[2 result image(s) rendered]")
}

func TestModel_TimedOutTurn(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, nil)
	m, _ = submit(t, m, "loop forever")

	updated, _ := m.Update(tui.TurnDoneMsg{Resp: &service.ChatResponse{
		Answer: agent.TimeoutAnswer,
		State:  agent.TurnTimedOut,
	}})
	m = updated.(tui.Model)

	assert.Contains(t, m.View(), agent.TimeoutAnswer)
}

func TestModel_TurnErrorShownInStatus(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, nil)
	m, _ = submit(t, m, "hi")

	updated, _ := m.Update(tui.TurnDoneMsg{Err: errors.New("backend unreachable")})
	m = updated.(tui.Model)

	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "Error: backend unreachable")
	assert.False(t, m.Running())
}

func TestModel_CanceledTurnIsNotAnError(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, nil)
	m, _ = submit(t, m, "hi")

	updated, _ := m.Update(tui.TurnDoneMsg{Err: context.Canceled})
	m = updated.(tui.Model)

	assert.NoError(t, m.Err())
	assert.False(t, m.Running())
}

func TestModel_CtrlCQuitsWhenIdle(t *testing.T) {
	t.Parallel()

	m := newReadyModel(t, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_CtrlCCancelsRunningTurn(t *testing.T) {
	t.Parallel()

	canceled := make(chan struct{})
	m := newReadyModel(t, func(ctx context.Context, _ string) (*service.ChatResponse, error) {
		<-ctx.Done()
		close(canceled)
		return nil, ctx.Err()
	})
	m, cmd := submit(t, m, "hi")
	require.True(t, m.Running())

	go cmd()

	updated, quitCmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(tui.Model)
	assert.Nil(t, quitCmd)

	<-canceled
	assert.True(t, m.Running())

	// The transcript survives; a long view still renders.
	assert.True(t, strings.Contains(m.View(), "> hi"))
}
