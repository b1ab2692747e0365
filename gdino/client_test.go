package gdino_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/gdino"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 8, 6))
}

func TestClient_Detect(t *testing.T) {
	t.Parallel()

	var captured struct {
		Image         string  `json:"image"`
		Prompt        string  `json:"prompt"`
		BoxThreshold  float64 `json:"box_threshold"`
		TextThreshold float64 `json:"text_threshold"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{
			"boxes": [[0.5, 0.5, 0.2, 0.4], [0.1, 0.2, 0.05, 0.1]],
			"scores": [0.93, 0.41],
			"phrases": ["dog", "dog"]
		}`))
	}))
	t.Cleanup(srv.Close)

	client := gdino.New(srv.URL)
	det, err := client.Detect(context.Background(), testImage(), "dog", 0.35, 0.25)
	require.NoError(t, err)

	assert.Equal(t, "dog", captured.Prompt)
	assert.InDelta(t, 0.35, captured.BoxThreshold, 1e-9)
	assert.InDelta(t, 0.25, captured.TextThreshold, 1e-9)

	// The image travels as base64 JPEG.
	raw, err := base64.StdEncoding.DecodeString(captured.Image)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, raw[:2])

	require.Equal(t, 2, det.Len())
	assert.Equal(t, segchat.Box{CX: 0.5, CY: 0.5, W: 0.2, H: 0.4}, det.Boxes[0])
	assert.Equal(t, []float64{0.93, 0.41}, det.Scores)
	assert.Equal(t, []string{"dog", "dog"}, det.Phrases)
}

func TestClient_DetectEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"boxes": [], "scores": [], "phrases": []}`))
	}))
	t.Cleanup(srv.Close)

	det, err := gdino.New(srv.URL).Detect(context.Background(), testImage(), "unicorn", 0.35, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0, det.Len())
}

func TestClient_DetectMismatchedLengths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"boxes": [[0.5, 0.5, 0.2, 0.4]], "scores": [0.9, 0.8], "phrases": ["dog"]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := gdino.New(srv.URL).Detect(context.Background(), testImage(), "dog", 0.35, 0.25)

	var upstream *segchat.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "gdino", upstream.Service)
	assert.Contains(t, err.Error(), "mismatched result lengths")
}

func TestClient_DetectMalformedBox(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"boxes": [[0.5, 0.5, 0.2]], "scores": [0.9], "phrases": ["dog"]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := gdino.New(srv.URL).Detect(context.Background(), testImage(), "dog", 0.35, 0.25)

	var upstream *segchat.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, err.Error(), "want 4")
}

func TestClient_DetectServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := gdino.New(srv.URL).Detect(context.Background(), testImage(), "dog", 0.35, 0.25)

	var upstream *segchat.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "gdino", upstream.Service)
	assert.Contains(t, err.Error(), "503")
}
