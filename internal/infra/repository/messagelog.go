package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/infra/treestore"
)

// MessageLogRepository is the message log store: one ordered list per
// conversation at /{conversationID}/messages. Records are immutable
// once appended; position in the list is the order.
type MessageLogRepository struct {
	store treestore.Store
}

func NewMessageLogRepository(store treestore.Store) *MessageLogRepository {
	return &MessageLogRepository{store: store}
}

func logPath(conversationID string) string {
	return conversationID + "/messages"
}

func (r *MessageLogRepository) Records(ctx context.Context, conversationID string) ([]domain.MessageRecord, error) {
	path := logPath(conversationID)
	raw, err := r.store.Get(ctx, path)
	if err != nil {
		if stderrors.Is(err, treestore.ErrPathMissing) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, domain.RemoteError{Op: "read", Path: path, Err: err}
	}

	var records []domain.MessageRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, "messagelog: decode log")
	}
	return records, nil
}

func (r *MessageLogRepository) Put(ctx context.Context, conversationID string, records []domain.MessageRecord) error {
	path := logPath(conversationID)
	raw, err := json.Marshal(records)
	if err != nil {
		return errors.Wrap(err, "messagelog: encode log")
	}
	if err := r.store.Set(ctx, path, raw); err != nil {
		return domain.RemoteError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// List returns the successfully decodable subset of the log. Records
// with missing required fields or an undecodable envelope are dropped,
// not surfaced: the result is partial, never all-or-nothing.
func (r *MessageLogRepository) List(ctx context.Context, conversationID string) ([]domain.MessageRecord, error) {
	records, err := r.Records(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MessageRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" || rec.Date == "" || rec.SenderEmail == "" {
			continue
		}
		if _, err := rec.Body(); err != nil {
			slog.DebugContext(
				ctx, "dropping undecodable message record",
				slog.String("conversation", conversationID),
				slog.String("id", rec.ID),
				slog.String("error", err.Error()),
				slog.String("module", "messagelog"),
			)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
