package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/infra/treestore"
)

// SummaryRepository is the conversation summary store: per-user records
// living at /{identity}, each holding the ordered summary list. The
// tree store has no partial-field update, so every mutation reads the
// whole record, applies a pure transform, and writes the whole record
// back. Two concurrent writers to the same record race; last write
// wins.
type SummaryRepository struct {
	store treestore.Store
}

func NewSummaryRepository(store treestore.Store) *SummaryRepository {
	return &SummaryRepository{store: store}
}

func userPath(id domain.Identity) string {
	return string(id)
}

func (r *SummaryRepository) GetUser(ctx context.Context, id domain.Identity) (domain.UserRecord, error) {
	path := userPath(id)
	raw, err := r.store.Get(ctx, path)
	if err != nil {
		if stderrors.Is(err, treestore.ErrPathMissing) {
			return domain.UserRecord{}, domain.ErrUserNotFound
		}
		return domain.UserRecord{}, domain.RemoteError{Op: "read", Path: path, Err: err}
	}

	var rec domain.UserRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.UserRecord{}, errors.Wrap(err, "summary: decode user record")
	}
	return rec, nil
}

func (r *SummaryRepository) PutUser(ctx context.Context, id domain.Identity, rec domain.UserRecord) error {
	path := userPath(id)
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "summary: encode user record")
	}
	if err := r.store.Set(ctx, path, raw); err != nil {
		return domain.RemoteError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (r *SummaryRepository) ListSummaries(ctx context.Context, id domain.Identity) ([]domain.ConversationSummary, error) {
	rec, err := r.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Conversations, nil
}

// AppendOrReplace folds the summary into the user's list and writes the
// record back. A missing user record surfaces as ErrUserNotFound from
// the read half; this is a data-integrity condition, not transient.
func (r *SummaryRepository) AppendOrReplace(ctx context.Context, id domain.Identity, s domain.ConversationSummary) error {
	rec, err := r.GetUser(ctx, id)
	if err != nil {
		return err
	}
	rec.Conversations = domain.AppendOrReplaceSummary(rec.Conversations, s)
	return r.PutUser(ctx, id, rec)
}

// Remove drops the first summary matching the conversation id. Absence
// of the summary, or of the whole user record, is a silent no-op.
func (r *SummaryRepository) Remove(ctx context.Context, id domain.Identity, conversationID string) error {
	rec, err := r.GetUser(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	reduced := domain.RemoveSummary(rec.Conversations, conversationID)
	if len(reduced) == len(rec.Conversations) {
		return nil
	}
	rec.Conversations = reduced
	return r.PutUser(ctx, id, rec)
}
