// Package gdino implements [segchat.Detector] against a Grounding DINO
// inference server.
//
// The server accepts a base64-encoded image and a natural-language
// prompt and returns open-vocabulary detections as normalized
// center-format boxes.
package gdino

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/vision"
)

// Interface compliance check.
var _ segchat.Detector = (*Client)(nil)

// Client talks to a Grounding DINO inference server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a client for the inference server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type predictRequest struct {
	Image         string  `json:"image"`
	Prompt        string  `json:"prompt"`
	BoxThreshold  float64 `json:"box_threshold"`
	TextThreshold float64 `json:"text_threshold"`
}

type predictResponse struct {
	Boxes   [][]float64 `json:"boxes"`
	Scores  []float64   `json:"scores"`
	Phrases []string    `json:"phrases"`
}

// Detect runs open-vocabulary detection on img. Boxes come back in
// normalized [cx, cy, w, h] form, parallel to scores and phrases.
func (c *Client) Detect(ctx context.Context, img image.Image, prompt string, boxThreshold, textThreshold float64) (segchat.Detection, error) {
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		return segchat.Detection{}, err
	}

	payload := predictRequest{
		Image:         base64.StdEncoding.EncodeToString(data),
		Prompt:        prompt,
		BoxThreshold:  boxThreshold,
		TextThreshold: textThreshold,
	}
	body, err := c.postJSON(ctx, c.baseURL+"/predict", payload)
	if err != nil {
		return segchat.Detection{}, &segchat.UpstreamError{Service: "gdino", Err: err}
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return segchat.Detection{}, &segchat.UpstreamError{
			Service: "gdino",
			Err:     fmt.Errorf("parsing response: %w", err),
		}
	}
	return convertDetection(resp)
}

// convertDetection validates the wire response and maps it onto the
// domain type.
func convertDetection(resp predictResponse) (segchat.Detection, error) {
	if len(resp.Boxes) != len(resp.Scores) || len(resp.Boxes) != len(resp.Phrases) {
		return segchat.Detection{}, &segchat.UpstreamError{
			Service: "gdino",
			Err: fmt.Errorf("mismatched result lengths: %d boxes, %d scores, %d phrases",
				len(resp.Boxes), len(resp.Scores), len(resp.Phrases)),
		}
	}

	det := segchat.Detection{
		Boxes:   make([]segchat.Box, len(resp.Boxes)),
		Scores:  resp.Scores,
		Phrases: resp.Phrases,
	}
	for i, b := range resp.Boxes {
		if len(b) != 4 {
			return segchat.Detection{}, &segchat.UpstreamError{
				Service: "gdino",
				Err:     fmt.Errorf("box %d has %d coordinates, want 4", i, len(b)),
			}
		}
		det.Boxes[i] = segchat.Box{CX: b[0], CY: b[1], W: b[2], H: b[3]}
	}
	return det, nil
}

// postJSON sends payload to url and returns the response body, treating
// any non-200 status as an error.
func (c *Client) postJSON(ctx context.Context, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
