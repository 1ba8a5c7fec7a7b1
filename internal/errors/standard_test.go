package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestStandardErrorIs(t *testing.T) {
	err := UnitNotOpen(3, "closed", "AddFlag")
	if !errors.Is(err, ErrUnitClosed) {
		t.Fatalf("expected UnitNotOpen to match ErrUnitClosed")
	}
	if errors.Is(err, ErrMissingEntry) {
		t.Fatalf("unexpected match against ErrMissingEntry")
	}
	if !strings.Contains(err.Error(), "CONTRACT:UNIT_NOT_OPEN") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStandardErrorCaller(t *testing.T) {
	err := InvalidInput("a.yaml", "bad node")
	if !strings.Contains(err.Caller, "TestStandardErrorCaller") {
		t.Fatalf("caller not recorded: %q", err.Caller)
	}
	if err.Context["source"] != "a.yaml" {
		t.Fatalf("context not recorded: %v", err.Context)
	}
}
