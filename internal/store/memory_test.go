package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreUpsertCreatesAndMerges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.Upsert(ctx, UsersCollection, "U1", Fields{"real_name": "Taro"})
	if err != nil {
		t.Fatalf("Upsert err: %v", err)
	}
	if got["real_name"] != "Taro" {
		t.Fatalf("unexpected stored fields: %v", got)
	}

	got, err = s.Upsert(ctx, UsersCollection, "U1", Fields{"email": "taro@example.com"})
	if err != nil {
		t.Fatalf("Upsert err: %v", err)
	}
	if got["real_name"] != "Taro" || got["email"] != "taro@example.com" {
		t.Fatalf("expected merged fields, got %v", got)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Get(context.Background(), UsersCollection, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreAppendChildIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.AppendChild(ctx, "U1", MessagesCollection, "163.001", Fields{"text": "first"}); err != nil {
		t.Fatalf("AppendChild err: %v", err)
	}
	if err := s.AppendChild(ctx, "U1", MessagesCollection, "163.001", Fields{"text": "rewritten"}); err != nil {
		t.Fatalf("AppendChild err: %v", err)
	}

	children := s.Children("U1", MessagesCollection)
	if len(children) != 1 {
		t.Fatalf("expected 1 child after duplicate append, got %d", len(children))
	}
	if children[0]["text"] != "rewritten" {
		t.Fatalf("expected last write to win, got %v", children[0])
	}
}

func TestMemoryStoreChildrenScopedToParent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.AppendChild(ctx, "U1", MessagesCollection, "1", Fields{"text": "a"})
	_ = s.AppendChild(ctx, "U2", MessagesCollection, "1", Fields{"text": "b"})

	if got := len(s.Children("U1", MessagesCollection)); got != 1 {
		t.Fatalf("expected 1 child for U1, got %d", got)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, _ = s.Upsert(ctx, UsersCollection, "U1", Fields{"real_name": "Taro"})
	got, _ := s.Get(ctx, UsersCollection, "U1")
	got["real_name"] = "Mutated"

	fresh, _ := s.Get(ctx, UsersCollection, "U1")
	if fresh["real_name"] != "Taro" {
		t.Fatalf("expected stored document to be isolated from caller mutation, got %v", fresh)
	}
}
