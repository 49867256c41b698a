// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// EqualWithNaN reports whether two floats are equal, treating NaN as equal
// to NaN.
func EqualWithNaN(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

// AssertFloats checks two float slices for element-wise equality within
// tol, treating NaN as equal to NaN.
func AssertFloats(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if EqualWithNaN(got[i], want[i]) {
			continue
		}
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("value[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
