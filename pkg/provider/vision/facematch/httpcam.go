package facematch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultFrameTimeout = 5 * time.Second

	// maxFrameBytes caps a single snapshot at 16 MiB.
	maxFrameBytes = 16 << 20
)

// SnapshotSource is a [FrameSource] backed by an HTTP snapshot endpoint, as
// exposed by most IP cameras (GET returns one JPEG per request).
type SnapshotSource struct {
	url    string
	client *http.Client
}

var _ FrameSource = (*SnapshotSource)(nil)

// SnapshotOption configures a SnapshotSource.
type SnapshotOption func(*SnapshotSource)

// WithFrameTimeout bounds a single snapshot request. Default: 5s.
func WithFrameTimeout(d time.Duration) SnapshotOption {
	return func(s *SnapshotSource) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// NewSnapshotSource creates a frame source that fetches one frame per
// request from url.
func NewSnapshotSource(url string, opts ...SnapshotOption) *SnapshotSource {
	s := &SnapshotSource{
		url:    url,
		client: &http.Client{Timeout: defaultFrameTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Frame fetches the current snapshot.
func (s *SnapshotSource) Frame(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("facematch: build snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facematch: fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facematch: snapshot endpoint returned %s", resp.Status)
	}

	frame, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("facematch: read snapshot body: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("facematch: snapshot endpoint returned an empty frame")
	}
	return frame, nil
}

// Close releases idle connections. The camera itself is owned by the
// remote endpoint.
func (s *SnapshotSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
