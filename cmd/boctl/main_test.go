package main

import (
	"testing"

	"github.com/opsdeck/backoffice/internal/errdefs"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("1, 2,3")
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	ids, err = parseIDs("")
	if err != nil {
		t.Fatalf("parseIDs empty: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("empty input must yield empty non-nil slice, got %v", ids)
	}

	if _, err := parseIDs("1,x"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestIDArg(t *testing.T) {
	id, err := idArg([]string{"42"}, "usage")
	if err != nil {
		t.Fatalf("idArg: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}

	if _, err := idArg(nil, "usage"); err == nil {
		t.Fatal("expected error for missing id")
	}
	if _, err := idArg([]string{"-7"}, "usage"); err == nil {
		t.Fatal("expected error for negative id")
	}
}

func TestExitCodes(t *testing.T) {
	if got := exitCode(nil); got != exitOK {
		t.Errorf("nil error: exit %d, want %d", got, exitOK)
	}
	if got := exitCode(usagef("u", "bad flag")); got != exitUsage {
		t.Errorf("usage error: exit %d, want %d", got, exitUsage)
	}
	if got := exitCode(errdefs.Auth("token expired")); got != exitAuth {
		t.Errorf("auth error: exit %d, want %d", got, exitAuth)
	}
	if got := exitCode(errdefs.Business("nope")); got != exitError {
		t.Errorf("business error: exit %d, want %d", got, exitError)
	}
}
