package util

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour, zap.NewNop())

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if !cb.CanExecute() {
			t.Fatalf("circuit must stay closed below the threshold (failure %d)", i+1)
		}
	}

	cb.RecordFailure()
	if cb.CanExecute() {
		t.Fatalf("circuit must open at the threshold")
	}
	if cb.State() != CircuitStateOpen {
		t.Fatalf("unexpected state: %s", cb.State())
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour, zap.NewNop())

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	if !cb.CanExecute() {
		t.Fatalf("a success in between must reset the failure count")
	}
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond, zap.NewNop())

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.CanExecute() {
		t.Fatalf("circuit must be open")
	}

	time.Sleep(20 * time.Millisecond)

	if !cb.CanExecute() {
		t.Fatalf("circuit must allow a probe after the reset timeout")
	}
	if cb.State() != CircuitStateHalfOpen {
		t.Fatalf("unexpected state: %s", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != CircuitStateClosed {
		t.Fatalf("a successful probe must close the circuit, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitStateClosed {
		t.Fatalf("one failure below threshold must keep the circuit closed")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond, zap.NewNop())

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if !cb.CanExecute() {
		t.Fatalf("circuit must allow a probe")
	}

	cb.RecordFailure()
	if cb.State() != CircuitStateOpen {
		t.Fatalf("a failed probe must reopen the circuit, got %s", cb.State())
	}
}
