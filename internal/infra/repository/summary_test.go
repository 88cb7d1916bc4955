package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/infra/treestore"
)

func seedUser(t *testing.T, repo *SummaryRepository, id domain.Identity) {
	t.Helper()
	err := repo.PutUser(context.Background(), id, domain.UserRecord{FirstName: "Alice", LastName: "Smith"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestSummaryRepositoryGetUserMissing(t *testing.T) {
	repo := NewSummaryRepository(treestore.NewMemoryStore())

	_, err := repo.GetUser(context.Background(), "alice-x-com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSummaryRepositoryRoundTrip(t *testing.T) {
	repo := NewSummaryRepository(treestore.NewMemoryStore())
	id := domain.Identity("alice-x-com")
	seedUser(t, repo, id)

	rec, err := repo.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if rec.FirstName != "Alice" || rec.LastName != "Smith" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestSummaryRepositoryAppendOrReplace(t *testing.T) {
	repo := NewSummaryRepository(treestore.NewMemoryStore())
	id := domain.Identity("alice-x-com")
	seedUser(t, repo, id)

	s := domain.ConversationSummary{
		ID:            "conversation_abc",
		ReceiverEmail: "bob-x-com",
		Name:          "Bob",
		LatestMessage: domain.LatestMessage{Message: "hi", Kind: "text"},
	}
	if err := repo.AppendOrReplace(context.Background(), id, s); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.LatestMessage.Message = "newer"
	if err := repo.AppendOrReplace(context.Background(), id, s); err != nil {
		t.Fatalf("replace: %v", err)
	}

	list, err := repo.ListSummaries(context.Background(), id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].LatestMessage.Message != "newer" {
		t.Fatalf("expected one replaced summary, got %+v", list)
	}
}

func TestSummaryRepositoryAppendOrReplaceUserMissing(t *testing.T) {
	repo := NewSummaryRepository(treestore.NewMemoryStore())

	err := repo.AppendOrReplace(context.Background(), "ghost-x-com", domain.ConversationSummary{ID: "conversation_abc"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSummaryRepositoryRemoveSilentNoop(t *testing.T) {
	store := treestore.NewMemoryStore()
	repo := NewSummaryRepository(store)
	id := domain.Identity("alice-x-com")
	seedUser(t, repo, id)

	if err := repo.Remove(context.Background(), id, "conversation_absent"); err != nil {
		t.Fatalf("remove of absent summary must be silent: %v", err)
	}
	if err := repo.Remove(context.Background(), "ghost-x-com", "conversation_absent"); err != nil {
		t.Fatalf("remove for absent user must be silent: %v", err)
	}
}
