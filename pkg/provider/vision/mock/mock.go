// Package mock provides a test double for the vision.Classifier interface.
//
// Use Classifier to feed scripted classification results into the sensing
// loop and to verify Close is called when the loop stops.
//
// Example:
//
//	c := &mock.Classifier{
//	    Results: []vision.Result{{Label: vision.LabelTrusted}},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/wardenhq/warden/pkg/provider/vision"
)

// Classifier is a mock implementation of vision.Classifier.
//
// Each Classify call consumes the next entry of Results; when the script is
// exhausted the last entry is repeated. If Results is empty, the zero Result
// (no-signal) is returned. Set ClassifyErr to fail every call, or
// ClassifyFunc for full per-call control.
type Classifier struct {
	mu sync.Mutex

	// Results is the scripted sequence of classification outcomes.
	Results []vision.Result

	// ClassifyErr, if non-nil, is returned by every Classify call.
	ClassifyErr error

	// ClassifyFunc, if non-nil, overrides Results/ClassifyErr entirely.
	ClassifyFunc func(ctx context.Context) (vision.Result, error)

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// ClassifyCallCount is the number of times Classify was called.
	ClassifyCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Classify records the call and returns the next scripted result.
func (c *Classifier) Classify(ctx context.Context) (vision.Result, error) {
	c.mu.Lock()
	idx := c.ClassifyCallCount
	c.ClassifyCallCount++
	fn := c.ClassifyFunc
	err := c.ClassifyErr
	var res vision.Result
	if n := len(c.Results); n > 0 {
		if idx >= n {
			idx = n - 1
		}
		res = c.Results[idx]
	}
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	if err != nil {
		return vision.Result{}, err
	}
	return res, nil
}

// Close records the call and returns CloseErr.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCallCount++
	return c.CloseErr
}

// Calls returns the number of Classify invocations so far. Thread-safe.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ClassifyCallCount
}

// Ensure Classifier implements vision.Classifier at compile time.
var _ vision.Classifier = (*Classifier)(nil)
