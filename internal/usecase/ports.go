package usecase

import (
	"context"

	"github.com/parley-chat/parley/internal/domain"
)

// SummaryStore defines storage operations for per-user records and
// their ordered conversation summary lists. Every mutation is a whole
// record read-modify-write; the store offers no partial-field update.
type SummaryStore interface {
	GetUser(ctx context.Context, id domain.Identity) (domain.UserRecord, error)
	PutUser(ctx context.Context, id domain.Identity, rec domain.UserRecord) error
	ListSummaries(ctx context.Context, id domain.Identity) ([]domain.ConversationSummary, error)
	AppendOrReplace(ctx context.Context, id domain.Identity, s domain.ConversationSummary) error
	Remove(ctx context.Context, id domain.Identity, conversationID string) error
}

// MessageLog defines storage operations for per-conversation ordered
// message lists.
type MessageLog interface {
	// Records returns the raw log. domain.ErrConversationNotFound when
	// no log exists for the id.
	Records(ctx context.Context, conversationID string) ([]domain.MessageRecord, error)
	// Put replaces the whole log in a single-path write, creating it
	// when absent.
	Put(ctx context.Context, conversationID string, records []domain.MessageRecord) error
	// List returns the successfully decodable subset of the log.
	List(ctx context.Context, conversationID string) ([]domain.MessageRecord, error)
}

// Directory defines persistence/lookup for the flat user directory.
type Directory interface {
	Register(ctx context.Context, entry domain.DirectoryEntry) error
	Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error)
}

// ConversationIndex is an optional fast path for existence checks,
// keyed (self, counterpart). It is rebuilt from the canonical summary
// lists and is never the source of truth.
type ConversationIndex interface {
	Get(self, counterpart domain.Identity) (string, bool)
	Set(self, counterpart domain.Identity, conversationID string)
	Drop(self, counterpart domain.Identity)
}
