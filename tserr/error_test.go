package tserr

import (
	"errors"
	"testing"
)

func TestKindRoundTrip(t *testing.T) {
	err := New(BadParam, "site %d out of range", 12)
	if !Is(err, BadParam) {
		t.Fatal("Is(err, BadParam) = false")
	}
	if Is(err, OutOfMemory) {
		t.Fatal("Is(err, OutOfMemory) = true for a BadParam error")
	}
	if Is(errors.New("plain"), Generic) {
		t.Fatal("Is matched a non-tserr error")
	}

	var te *Error
	if !errors.As(err, &te) {
		t.Fatal("errors.As failed to recover *Error")
	}
	if te.Kind != BadParam {
		t.Fatalf("Kind = %v, want BadParam", te.Kind)
	}
	want := "BadParam: site 12 out of range"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindString(t *testing.T) {
	if Kind(99).String() != "Unknown" {
		t.Fatalf("unexpected name for out-of-range kind: %s", Kind(99))
	}
	if OutOfMemory.String() != "OutOfMemory" {
		t.Fatalf("OutOfMemory prints as %s", OutOfMemory)
	}
}
