package facematch

import (
	"context"
	"errors"
	"testing"

	"github.com/wardenhq/warden/pkg/facestore"
	"github.com/wardenhq/warden/pkg/provider/vision"
)

// ── test doubles ─────────────────────────────────────────────────────────────

type stubFrames struct {
	frame  []byte
	err    error
	closed int
}

func (s *stubFrames) Frame(context.Context) ([]byte, error) { return s.frame, s.err }
func (s *stubFrames) Close() error                          { s.closed++; return nil }

type stubEncoder struct {
	encodings [][]float32
	err       error
}

func (s *stubEncoder) Encode(context.Context, []byte) ([][]float32, error) {
	return s.encodings, s.err
}

func newStore(t *testing.T) facestore.Store {
	t.Helper()
	s := facestore.NewMemStore()
	if err := s.Add(context.Background(), facestore.Entry{Name: "alice", Encoding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return s
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		encodings [][]float32
		want      vision.Label
		wantName  string
	}{
		{
			name:      "matching face is trusted",
			encodings: [][]float32{{0.99, 0.01, 0}},
			want:      vision.LabelTrusted,
			wantName:  "alice",
		},
		{
			name:      "distant face is untrusted",
			encodings: [][]float32{{0, 1, 0}},
			want:      vision.LabelUntrusted,
		},
		{
			name:      "no faces is no-signal",
			encodings: nil,
			want:      vision.LabelNoSignal,
		},
		{
			name:      "one match among strangers is trusted",
			encodings: [][]float32{{0, 1, 0}, {1, 0, 0}},
			want:      vision.LabelTrusted,
			wantName:  "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := New(&stubFrames{frame: []byte{1}}, &stubEncoder{encodings: tt.encodings}, newStore(t))
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			res, err := m.Classify(context.Background())
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if res.Label != tt.want {
				t.Errorf("label: want %v, got %v", tt.want, res.Label)
			}
			if res.Subject != tt.wantName {
				t.Errorf("subject: want %q, got %q", tt.wantName, res.Subject)
			}
		})
	}
}

func TestClassifyFrameFailure(t *testing.T) {
	t.Parallel()

	m, err := New(&stubFrames{err: errors.New("device busy")}, &stubEncoder{}, newStore(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.Classify(context.Background()); err == nil {
		t.Fatal("want capture error, got nil")
	}
}

func TestCloseReleasesFrameSourceOnce(t *testing.T) {
	t.Parallel()

	frames := &stubFrames{frame: []byte{1}}
	m, err := New(frames, &stubEncoder{}, newStore(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if frames.closed != 1 {
		t.Fatalf("frame source closed %d times, want 1", frames.closed)
	}
}
