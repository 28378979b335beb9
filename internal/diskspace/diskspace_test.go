package diskspace

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestAvailable(t *testing.T) {
	n, err := Available(t.TempDir())
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if n <= 0 {
		t.Errorf("expected positive free space, got %d", n)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "staged.tar.gz")

	if err := Check(target, 1024, DefaultSafetyMargin); err != nil {
		t.Errorf("1 KB should fit: %v", err)
	}

	err := Check(target, math.MaxInt64/2, DefaultSafetyMargin)
	if err == nil {
		t.Fatal("expected insufficient space")
	}
	if !IsInsufficientSpace(fmt.Errorf("staging: %w", err)) {
		t.Errorf("expected wrapped InsufficientSpaceError, got %T", err)
	}

	if err := Check(filepath.Join(dir, "no", "such", "dir", "x"), math.MaxInt64/2, 1); err != nil {
		t.Errorf("unknown free space should pass, got %v", err)
	}
}

func TestInsufficientSpaceError_Message(t *testing.T) {
	err := &InsufficientSpaceError{Path: "/tmp/x", RequiredBytes: 2 << 20, AvailableBytes: 1 << 20}
	msg := err.Error()
	if !strings.Contains(msg, "need 2.00 MB") || !strings.Contains(msg, "have 1.00 MB") {
		t.Errorf("unexpected message: %s", msg)
	}
}
