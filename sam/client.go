// Package sam implements [segchat.Segmenter] against a SAM inference
// server.
//
// The server accepts a base64-encoded image plus a pixel-space corner
// box and returns a binary mask covering the boxed object.
package sam

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
var _ segchat.Segmenter = (*Client)(nil)

// Client talks to a SAM inference server over HTTP.
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

type segmentRequest struct {
	Image string     `json:"image"`
	Box   [4]float64 `json:"box"`
}

type segmentResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mask   string `json:"mask"`
}

// Segment returns the binary mask for the object inside the pixel-space
// corner box (x1, y1) to (x2, y2). The mask has the image's dimensions.
func (c *Client) Segment(ctx context.Context, img image.Image, x1, y1, x2, y2 float64) (segchat.Mask, error) {
	data, err := vision.EncodeJPEG(img)
	if err != nil {
		return segchat.Mask{}, err
	}

	payload := segmentRequest{
		Image: base64.StdEncoding.EncodeToString(data),
		Box:   [4]float64{x1, y1, x2, y2},
	}
	body, err := c.postJSON(ctx, c.baseURL+"/segment", payload)
	if err != nil {
		return segchat.Mask{}, &segchat.UpstreamError{Service: "sam", Err: err}
	}

	var resp segmentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return segchat.Mask{}, &segchat.UpstreamError{
			Service: "sam",
			Err:     fmt.Errorf("parsing response: %w", err),
		}
	}
	return convertMask(resp)
}

// convertMask decodes the wire mask, one byte per pixel in row-major
// order, zero meaning background.
func convertMask(resp segmentResponse) (segchat.Mask, error) {
	raw, err := base64.StdEncoding.DecodeString(resp.Mask)
	if err != nil {
		return segchat.Mask{}, &segchat.UpstreamError{
			Service: "sam",
			Err:     fmt.Errorf("decoding mask: %w", err),
		}
	}
	if len(raw) != resp.Width*resp.Height {
		return segchat.Mask{}, &segchat.UpstreamError{
			Service: "sam",
			Err:     fmt.Errorf("mask has %d pixels, want %d (%dx%d)", len(raw), resp.Width*resp.Height, resp.Width, resp.Height),
		}
	}

	mask := segchat.NewMask(resp.Width, resp.Height)
	for i, v := range raw {
		if v != 0 {
			mask.Pix[i] = true
		}
	}
	return mask, nil
}

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
