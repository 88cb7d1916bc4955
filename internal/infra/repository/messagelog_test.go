package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/infra/treestore"
)

func record(id, kind, content string) domain.MessageRecord {
	return domain.MessageRecord{
		ID:          id,
		Kind:        kind,
		Content:     content,
		Date:        "Jan 23, 2024 at 6:04:05 PM UTC",
		SenderEmail: "alice-x-com",
		SenderName:  "Alice",
	}
}

func TestMessageLogRepositoryMissing(t *testing.T) {
	repo := NewMessageLogRepository(treestore.NewMemoryStore())

	_, err := repo.Records(context.Background(), "conversation_nope")
	if !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestMessageLogRepositoryPutAndList(t *testing.T) {
	repo := NewMessageLogRepository(treestore.NewMemoryStore())
	id := "conversation_abc"

	recs := []domain.MessageRecord{
		record("m1", "text", "hi"),
		record("m2", "location", "77.5946,12.9716"),
	}
	if err := repo.Put(context.Background(), id, recs); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.List(context.Background(), id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestMessageLogRepositoryListDropsBadRecords(t *testing.T) {
	repo := NewMessageLogRepository(treestore.NewMemoryStore())
	id := "conversation_abc"

	recs := []domain.MessageRecord{
		record("m1", "text", "hi"),
		record("m2", "sticker", "???"),        // unknown kind
		record("m3", "location", "east,west"), // malformed content
		{Kind: "text", Content: "no id"},      // missing required fields
		record("m4", "text", "still here"),
	}
	if err := repo.Put(context.Background(), id, recs); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.List(context.Background(), id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m4" {
		t.Fatalf("expected the decodable subset in order, got %+v", got)
	}
}
