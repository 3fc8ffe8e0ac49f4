package store

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Run("valid prefix", func(t *testing.T) {
		id, err := GenerateFileID(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != 3+fileIDLength {
			t.Fatalf("expected length %d, got %d: %s", 3+fileIDLength, len(id), id)
		}
		if !strings.HasPrefix(id, "fl-") {
			t.Fatalf("expected prefix fl-, got %s", id)
		}
	})

	t.Run("empty prefix", func(t *testing.T) {
		if _, err := GenerateID("", 4, nil); err == nil {
			t.Fatal("expected error for empty prefix")
		}
	})

	t.Run("non-positive length", func(t *testing.T) {
		if _, err := GenerateID("x", 0, nil); err == nil {
			t.Fatal("expected error for zero length")
		}
	})

	t.Run("retries on collision", func(t *testing.T) {
		calls := 0
		exists := func(id string) (bool, error) {
			calls++
			return calls < 3, nil
		}
		id, err := GenerateDocumentName(exists)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(id, "doc-") {
			t.Fatalf("unexpected id %q", id)
		}
		if calls != 3 {
			t.Fatalf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		exists := func(id string) (bool, error) {
			return true, nil
		}
		if _, err := GenerateFileID(exists); err == nil {
			t.Fatal("expected error after max attempts")
		}
	})

	t.Run("propagates exists error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := GenerateFileID(func(string) (bool, error) { return false, boom })
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	})
}
