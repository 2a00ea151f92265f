package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func mockPostgresError(code string) error {
	return fmt.Errorf("insert listing: %w", &pq.Error{Code: pq.ErrorCode(code), Message: "simulated"})
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return nil
	}

	err := WithRetries(operation, 3, IsTransientPostgresError)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_FailureNotRetryable(t *testing.T) {
	var opCalled int
	expectedErr := mockPostgresError("23505") // unique_violation
	operation := func() error {
		opCalled++
		return expectedErr
	}

	err := WithRetries(operation, 3, IsTransientPostgresError)
	if !errors.Is(err, expectedErr) {
		t.Errorf("Expected error %v, got %v", expectedErr, err)
	}
	if opCalled != 1 {
		t.Errorf("Expected operation to be called 1 time, got %d", opCalled)
	}
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return mockPostgresError("40001")
	}

	maxRetries := 3
	err := WithRetries(operation, maxRetries, IsTransientPostgresError)

	if err == nil {
		t.Fatal("Expected a serialization error, got nil")
	}
	if !IsTransientPostgresError(err) {
		t.Errorf("Expected a transient Postgres error, got %T: %v", err, err)
	}

	expectedOpCalls := maxRetries + 1
	if opCalled != expectedOpCalls {
		t.Errorf("Expected operation to be called %d times, got %d", expectedOpCalls, opCalled)
	}
}

func TestWithRetries_DeadlockResolves(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		if opCalled < 3 {
			return mockPostgresError("40P01")
		}
		return nil
	}

	if err := WithRetries(operation, 3, IsTransientPostgresError); err != nil {
		t.Fatalf("Expected no error as deadlock should resolve, got: %v", err)
	}
	if opCalled != 3 {
		t.Errorf("Expected operation to be called 3 times, got %d", opCalled)
	}
}

func TestIsTransientPostgresError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{mockPostgresError("40001"), true},
		{mockPostgresError("40P01"), true},
		{mockPostgresError("08006"), true}, // connection_failure
		{mockPostgresError("57P01"), true},
		{mockPostgresError("23502"), false}, // not_null_violation
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsTransientPostgresError(tt.err); got != tt.want {
			t.Errorf("IsTransientPostgresError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
