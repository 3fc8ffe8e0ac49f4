package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalPutOpenDelete(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ctx := context.Background()

	first, err := store.Put(ctx, bytes.NewBufferString("hello"), 0)
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if first.Digest == "" || first.Size != 5 || !strings.HasPrefix(first.Key, "sha256/") {
		t.Fatalf("unexpected put result: %#v", first)
	}

	second, err := store.Put(ctx, bytes.NewBufferString("hello"), 0)
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical content to share a key: first=%#v second=%#v", first, second)
	}

	rc, err := store.Open(ctx, first.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected hello, got %q", string(data))
	}

	if err := store.Delete(ctx, first.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, first.Key); err != nil {
		t.Fatalf("delete missing should be a noop: %v", err)
	}
}

func TestLocalPutSizeLimit(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, bytes.NewBufferString("12345"), 5); err != nil {
		t.Fatalf("expected payload at limit to pass: %v", err)
	}
	if _, err := store.Put(ctx, bytes.NewBufferString("123456"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../x", "sha256/../../x", "tmp/upload-1"} {
		if _, err := store.Open(context.Background(), key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
