package service_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/agent"
	"github.com/fwojciec/segchat/artifact"
	"github.com/fwojciec/segchat/mock"
	"github.com/fwojciec/segchat/service"
	"github.com/fwojciec/segchat/store"
	"github.com/fwojciec/segchat/tools"
	"github.com/fwojciec/segchat/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	data, err := vision.EncodeJPEG(image.NewNRGBA(image.Rect(0, 0, w, h)))
	require.NoError(t, err)
	return data
}

// newService wires a full service over mock inference backends and the
// given scripted provider responses.
func newService(t *testing.T, responses ...segchat.AssistantMessage) (*service.Service, *store.SessionStore, *artifact.Store) {
	t.Helper()

	detector := &mock.Detector{
		DetectFn: func(_ context.Context, _ image.Image, _ string, _, _ float64) (segchat.Detection, error) {
			return segchat.Detection{
				Boxes:   []segchat.Box{{CX: 0.5, CY: 0.5, W: 0.2, H: 0.4}},
				Scores:  []float64{0.9},
				Phrases: []string{"dog"},
			}, nil
		},
	}
	segmenter := &mock.Segmenter{
		SegmentFn: func(_ context.Context, img image.Image, _, _, _, _ float64) (segchat.Mask, error) {
			b := img.Bounds()
			return segchat.NewMask(b.Dx(), b.Dy()), nil
		},
	}

	var calls int
	provider := &mock.Provider{
		CompleteFn: func(_ context.Context, _ segchat.Request) (segchat.AssistantMessage, error) {
			require.Less(t, calls, len(responses), "provider called more times than scripted")
			msg := responses[calls]
			calls++
			return msg, nil
		},
	}

	artifacts, err := artifact.New(t.TempDir())
	require.NoError(t, err)
	sessions := store.NewSessionStore()
	cache := store.NewDetectionCache()
	executor := tools.NewExecutor(vision.New(detector, segmenter), cache, artifacts)
	loop := agent.New(provider, executor, sessions, tools.Definitions())

	svc, err := service.New(sessions, cache, loop, artifacts, filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return svc, sessions, artifacts
}

func TestService_CreateSession(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newService(t)

	id, err := svc.CreateSession(context.Background(), jpegBytes(t, 40, 30), "photo.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := sessions.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.True(t, strings.HasSuffix(sess.ImagePath, ".jpg"))
	assert.Contains(t, sess.SystemPrompt, sess.ImagePath)
	assert.Contains(t, sess.SystemPrompt, "segment_confirmed")

	// The upload is decodable from its stored location.
	_, err = vision.Open(sess.ImagePath)
	require.NoError(t, err)
}

func TestService_CreateSessionEmptyUpload(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.CreateSession(context.Background(), nil, "photo.jpg")
	assert.ErrorIs(t, err, segchat.ErrUserInput)
}

func TestService_CreateSessionUndecodableUpload(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.CreateSession(context.Background(), []byte("not an image"), "photo.jpg")
	assert.ErrorIs(t, err, segchat.ErrImageDecode)
}

func TestService_ChatProducesDataURLs(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t,
		segchat.AssistantMessage{
			Content: []segchat.ContentBlock{segchat.ToolCallBlock{
				ID:        "call_1",
				Name:      tools.ToolDetect,
				Arguments: json.RawMessage(`{"prompt": "dog"}`),
			}},
			Timestamp: time.Now(),
		},
		segchat.AssistantMessage{
			Content:   []segchat.ContentBlock{segchat.TextBlock{Text: "Found one dog. Segment it?"}},
			Timestamp: time.Now(),
		},
	)

	id, err := svc.CreateSession(context.Background(), jpegBytes(t, 400, 300), "photo.jpg")
	require.NoError(t, err)

	resp, err := svc.Chat(context.Background(), id, "find the dog")
	require.NoError(t, err)

	assert.Equal(t, agent.TurnAnswered, resp.State)
	assert.Equal(t, "Found one dog. Segment it?", resp.Answer)
	require.Len(t, resp.Images, 1)
	assert.True(t, strings.HasPrefix(resp.Images[0], "data:image/jpeg;base64,"))
	assert.Greater(t, len(resp.Images[0]), len("data:image/jpeg;base64,"))
}

func TestService_ChatReturnsEveryTurnImage(t *testing.T) {
	t.Parallel()

	svc, _, artifacts := newService(t,
		segchat.AssistantMessage{
			Content: []segchat.ContentBlock{segchat.ToolCallBlock{
				ID:        "call_1",
				Name:      tools.ToolDetect,
				Arguments: json.RawMessage(`{"prompt": "dog"}`),
			}},
			Timestamp: time.Now(),
		},
		segchat.AssistantMessage{
			Content: []segchat.ContentBlock{segchat.ToolCallBlock{
				ID:        "call_2",
				Name:      tools.ToolSegmentConfirmed,
				Arguments: json.RawMessage(`{}`),
			}},
			Timestamp: time.Now(),
		},
		segchat.AssistantMessage{
			Content:   []segchat.ContentBlock{segchat.TextBlock{Text: "Done."}},
			Timestamp: time.Now(),
		},
	)

	id, err := svc.CreateSession(context.Background(), jpegBytes(t, 400, 300), "photo.jpg")
	require.NoError(t, err)

	resp, err := svc.Chat(context.Background(), id, "segment the dog, skip my confirmation")
	require.NoError(t, err)

	// Both renders of the turn come back, oldest first, so the latest
	// result is always the last element.
	require.Len(t, resp.Images, 2)
	for seq, img := range resp.Images {
		data, err := artifacts.Load(segchat.ArtifactRef{SessionID: id, Seq: seq + 1})
		require.NoError(t, err)
		assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(data), img)
	}
}

func TestService_ChatValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.Chat(context.Background(), "", "hello")
	assert.ErrorIs(t, err, segchat.ErrUserInput)

	_, err = svc.Chat(context.Background(), "some-id", "")
	assert.ErrorIs(t, err, segchat.ErrUserInput)
}

func TestService_ChatUnknownSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.Chat(context.Background(), "nope", "hello")
	assert.ErrorIs(t, err, segchat.ErrSessionNotFound)
}

func TestService_DeleteSession(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newService(t)

	id, err := svc.CreateSession(context.Background(), jpegBytes(t, 40, 30), "photo.jpg")
	require.NoError(t, err)
	require.Equal(t, 1, sessions.Len())

	require.NoError(t, svc.DeleteSession(context.Background(), id))
	assert.Equal(t, 0, sessions.Len())

	assert.ErrorIs(t, svc.DeleteSession(context.Background(), id), segchat.ErrSessionNotFound)
}

func TestService_Healthz(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	health := svc.Healthz()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.ActiveSessions)

	_, err := svc.CreateSession(context.Background(), jpegBytes(t, 40, 30), "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Healthz().ActiveSessions)
}
