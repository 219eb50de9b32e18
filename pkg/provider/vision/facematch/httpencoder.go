package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultEncodeTimeout = 10 * time.Second

// HTTPEncoder is an [Encoder] backed by a face-embedding sidecar service.
// The sidecar receives the raw frame via POST and answers with a JSON body
// of the form {"encodings": [[...], ...]}, one vector per detected face.
type HTTPEncoder struct {
	url    string
	client *http.Client
}

var _ Encoder = (*HTTPEncoder)(nil)

// EncoderOption configures an HTTPEncoder.
type EncoderOption func(*HTTPEncoder)

// WithEncodeTimeout bounds a single encoding request. Default: 10s.
func WithEncodeTimeout(d time.Duration) EncoderOption {
	return func(e *HTTPEncoder) {
		if d > 0 {
			e.client.Timeout = d
		}
	}
}

// NewHTTPEncoder creates an encoder client for the sidecar at url.
func NewHTTPEncoder(url string, opts ...EncoderOption) *HTTPEncoder {
	e := &HTTPEncoder{
		url:    url,
		client: &http.Client{Timeout: defaultEncodeTimeout},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// encodeResponse is the sidecar's answer.
type encodeResponse struct {
	Encodings [][]float32 `json:"encodings"`
}

// Encode sends the frame to the sidecar and returns one embedding per
// detected face. A frame with no faces yields an empty slice.
func (e *HTTPEncoder) Encode(ctx context.Context, frame []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("facematch: build encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facematch: encode frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facematch: encoder returned %s", resp.Status)
	}

	var body encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("facematch: decode encoder response: %w", err)
	}
	return body.Encodings, nil
}
