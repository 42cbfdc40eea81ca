// Package tester holds the small assertion helpers shared by package tests.
package tester

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func fail(t *testing.T, msgAndArgs []any, format string, args ...any) {
	t.Helper()
	if len(msgAndArgs) > 0 {
		t.Fatalf("%v: "+format, append([]any{msgAndArgs[0]}, args...)...)
	}
	t.Fatalf(format, args...)
}

// Eq fails unless got and want are deeply equal.
func Eq[T any](t *testing.T, got, want T, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		fail(t, msgAndArgs, "got=%v want=%v", got, want)
	}
}

func True(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if !cond {
		fail(t, msgAndArgs, "expected condition to be true")
	}
}

func False(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if cond {
		fail(t, msgAndArgs, "expected condition to be false")
	}
}

func NoErr(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		fail(t, msgAndArgs, "unexpected error: %v", err)
	}
}

// ErrIs fails unless errors.Is(err, target).
func ErrIs(t *testing.T, err, target error, msgAndArgs ...any) {
	t.Helper()
	if !errors.Is(err, target) {
		fail(t, msgAndArgs, "error %v is not %v", err, target)
	}
}

// ErrAs fails unless err unwraps to *E and returns it.
func ErrAs[E error](t *testing.T, err error, msgAndArgs ...any) E {
	t.Helper()
	var target E
	if !errors.As(err, &target) {
		fail(t, msgAndArgs, "error %v (%T) does not unwrap to %T", err, err, target)
	}
	return target
}

// Contains fails unless s contains sub.
func Contains(t *testing.T, s, sub string, msgAndArgs ...any) {
	t.Helper()
	if !strings.Contains(s, sub) {
		fail(t, msgAndArgs, "%q does not contain %q", s, sub)
	}
}

// Len fails unless the slice has n elements.
func Len[T any](t *testing.T, s []T, n int, msgAndArgs ...any) {
	t.Helper()
	if len(s) != n {
		fail(t, msgAndArgs, "len=%d want %d: %v", len(s), n, s)
	}
}
