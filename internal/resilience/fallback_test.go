package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestFallbackGroup_ExecutePrefersPrimary(t *testing.T) {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{})
	fg.AddFallback("secondary", "secondary")

	var used string
	err := fg.Execute(func(v string) error {
		used = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != "primary" {
		t.Fatalf("used = %q, want primary", used)
	}
}

func TestFallbackGroup_ExecuteTriesInOrder(t *testing.T) {
	fg := NewFallbackGroup("a", "a", FallbackConfig{})
	fg.AddFallback("b", "b")
	fg.AddFallback("c", "c")

	var tried []string
	err := fg.Execute(func(v string) error {
		tried = append(tried, v)
		if v != "c" {
			return errors.New("nope")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(tried) != len(want) {
		t.Fatalf("tried = %v, want %v", tried, want)
	}
	for i := range want {
		if tried[i] != want[i] {
			t.Fatalf("tried = %v, want %v", tried, want)
		}
	}
}

func TestFallbackGroup_AllFailWrapsLastError(t *testing.T) {
	fg := NewFallbackGroup("only", "only", FallbackConfig{})

	err := fg.Execute(func(string) error { return errors.New("boom") })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_OpenBreakerIsSkipped(t *testing.T) {
	fg := NewFallbackGroup("flaky", "flaky", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fg.AddFallback("steady", "steady")

	// First call fails on the primary, tripping its breaker.
	calls := map[string]int{}
	run := func() error {
		return fg.Execute(func(v string) error {
			calls[v]++
			if v == "flaky" {
				return errors.New("down")
			}
			return nil
		})
	}
	if err := run(); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := run(); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if calls["flaky"] != 1 {
		t.Fatalf("flaky called %d times, want 1 (breaker open on second run)", calls["flaky"])
	}
	if calls["steady"] != 2 {
		t.Fatalf("steady called %d times, want 2", calls["steady"])
	}
}

func TestExecuteWithResult_ReturnsValue(t *testing.T) {
	fg := NewFallbackGroup(1, "one", FallbackConfig{})
	fg.AddFallback("two", 2)

	got, err := ExecuteWithResult(fg, func(v int) (int, error) {
		if v == 1 {
			return 0, errors.New("skip")
		}
		return v * 10, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 20 {
		t.Fatalf("got = %d, want 20", got)
	}
}
