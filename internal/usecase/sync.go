package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/parley-chat/parley/internal/domain"
)

var tracer = otel.Tracer("sync")

// Sender is the explicit requester identity threaded through every
// operation instead of being read from ambient process-wide state.
type Sender struct {
	Identity domain.Identity
	Name     string
}

// OutgoingMessage is a typed message on its way into a conversation.
type OutgoingMessage struct {
	ID     string
	Body   domain.MessageBody
	SentAt time.Time
}

// CreateResult reports the outcome of CreateConversation. The
// counterpart-side summary write is an independent task: its error is
// observable here but is not part of the operation's reported success.
type CreateResult struct {
	ConversationID string
	CounterpartErr error
}

// SyncUsecase orchestrates the multi-record writes that keep both
// parties' denormalized conversation summaries and the shared message
// log consistent. Every list mutation is a whole-record
// read-modify-write with no compare-and-swap, so two concurrent callers
// mutating the same list race and the last write wins.
type SyncUsecase struct {
	summaries SummaryStore
	log       MessageLog
	index     ConversationIndex
}

// NewSyncUsecase wires the engine. index may be nil; it is only a fast
// path for existence checks.
func NewSyncUsecase(summaries SummaryStore, log MessageLog, index ConversationIndex) *SyncUsecase {
	return &SyncUsecase{
		summaries: summaries,
		log:       log,
		index:     index,
	}
}

// CreateConversation creates the conversation between self and the
// counterpart: the self-facing summary, the fresh message log holding
// the first message, and the counterpart-facing summary. Success
// requires the self summary and log writes. A missing caller record
// aborts the whole operation; past that point the counterpart write is
// dispatched regardless of the self-side outcome and only reported
// through the result.
func (uc *SyncUsecase) CreateConversation(ctx context.Context, self Sender, counterpartAddress, counterpartName string, first OutgoingMessage) (CreateResult, error) {
	ctx, span := tracer.Start(ctx, "Sync.Usecase.CreateConversation")
	defer span.End()

	counterpart := domain.Normalize(counterpartAddress)
	conversationID := domain.ConversationID(first.ID)

	record, err := domain.NewMessageRecord(first.ID, first.Body, self.Identity, self.Name, first.SentAt)
	if err != nil {
		span.RecordError(err)
		return CreateResult{}, err
	}
	latest := domain.LatestMessage{
		Date:    record.Date,
		Message: record.Content,
		Kind:    record.Kind,
	}

	selfFacing := domain.ConversationSummary{
		ID:            conversationID,
		ReceiverEmail: counterpart,
		Name:          counterpartName,
		LatestMessage: latest,
	}
	counterpartFacing := domain.ConversationSummary{
		ID:            conversationID,
		ReceiverEmail: self.Identity,
		Name:          self.Name,
		LatestMessage: latest,
	}

	selfErr := uc.summaries.AppendOrReplace(ctx, self.Identity, selfFacing)
	if errors.Is(selfErr, domain.ErrUserNotFound) {
		// The caller's record is absent: abort before any counterpart
		// state exists, or the conversation would be discoverable from
		// a side whose log was never created.
		span.RecordError(selfErr)
		return CreateResult{ConversationID: conversationID}, selfErr
	}

	counterpartErr := uc.summaries.AppendOrReplace(ctx, counterpart, counterpartFacing)
	if counterpartErr != nil {
		span.RecordError(counterpartErr)
		slog.WarnContext(
			ctx, "counterpart summary write failed",
			slog.String("conversation", conversationID),
			slog.String("counterpart", counterpart.String()),
			slog.String("error", counterpartErr.Error()),
			slog.String("module", "sync"),
		)
	} else if uc.index != nil {
		uc.index.Set(self.Identity, counterpart, conversationID)
	}

	res := CreateResult{ConversationID: conversationID, CounterpartErr: counterpartErr}

	if selfErr != nil {
		span.RecordError(selfErr)
		return res, selfErr
	}

	if err := uc.log.Put(ctx, conversationID, []domain.MessageRecord{record}); err != nil {
		span.RecordError(err)
		return res, err
	}

	if uc.index != nil {
		uc.index.Set(counterpart, self.Identity, conversationID)
	}

	return res, nil
}

// AppendMessage appends a message to an existing conversation and
// refreshes both parties' latest-message snapshots. The log must
// already exist; only CreateConversation creates logs. The operation
// short-circuits on the first failure with no partial-completion
// rollback, leaving the whole call safely re-invokable.
func (uc *SyncUsecase) AppendMessage(ctx context.Context, conversationID string, self Sender, counterpartAddress, counterpartName string, msg OutgoingMessage) error {
	ctx, span := tracer.Start(ctx, "Sync.Usecase.AppendMessage")
	defer span.End()

	counterpart := domain.Normalize(counterpartAddress)

	records, err := uc.log.Records(ctx, conversationID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	record, err := domain.NewMessageRecord(msg.ID, msg.Body, self.Identity, self.Name, msg.SentAt)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := uc.log.Put(ctx, conversationID, append(records, record)); err != nil {
		span.RecordError(err)
		return err
	}

	latest := domain.LatestMessage{
		Date:    record.Date,
		Message: record.Content,
		Kind:    record.Kind,
	}

	// Self-healing: a summary that went missing is re-appended rather
	// than treated as an error.
	err = uc.summaries.AppendOrReplace(ctx, self.Identity, domain.ConversationSummary{
		ID:            conversationID,
		ReceiverEmail: counterpart,
		Name:          counterpartName,
		LatestMessage: latest,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	// The counterpart's view carries self's locally known display name.
	err = uc.summaries.AppendOrReplace(ctx, counterpart, domain.ConversationSummary{
		ID:            conversationID,
		ReceiverEmail: self.Identity,
		Name:          self.Name,
		LatestMessage: latest,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// ConversationExists answers whether a conversation between self and
// the counterpart already exists by scanning the counterpart's live
// summary list for an entry pointing back at self. The index, when
// present, short-cuts the scan but is rebuilt from the canonical list
// on every miss.
func (uc *SyncUsecase) ConversationExists(ctx context.Context, self domain.Identity, counterpartAddress string) (string, error) {
	ctx, span := tracer.Start(ctx, "Sync.Usecase.ConversationExists")
	defer span.End()

	counterpart := domain.Normalize(counterpartAddress)

	if uc.index != nil {
		if id, ok := uc.index.Get(self, counterpart); ok {
			return id, nil
		}
	}

	list, err := uc.summaries.ListSummaries(ctx, counterpart)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrConversationNotFound
		}
		span.RecordError(err)
		return "", err
	}

	s, ok := domain.FindSummaryWith(list, self)
	if !ok {
		return "", domain.ErrConversationNotFound
	}

	if uc.index != nil {
		uc.index.Set(self, counterpart, s.ID)
	}
	return s.ID, nil
}

// DeleteConversation removes the conversation from self's summary list
// only. The counterpart's summary and the shared message log are left
// untouched: deletion is local to the caller, and the orphaned data
// stays reachable for the other party.
func (uc *SyncUsecase) DeleteConversation(ctx context.Context, self domain.Identity, conversationID string) error {
	ctx, span := tracer.Start(ctx, "Sync.Usecase.DeleteConversation")
	defer span.End()

	if uc.index != nil {
		list, err := uc.summaries.ListSummaries(ctx, self)
		if err == nil {
			if s, ok := domain.FindSummary(list, conversationID); ok {
				uc.index.Drop(s.ReceiverEmail, self)
				uc.index.Drop(self, s.ReceiverEmail)
			}
		}
	}

	if err := uc.summaries.Remove(ctx, self, conversationID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// ListConversations returns a lazy snapshot of self's summary list.
func (uc *SyncUsecase) ListConversations(ctx context.Context, self domain.Identity) ([]domain.ConversationSummary, error) {
	return uc.summaries.ListSummaries(ctx, self)
}

// ListMessages returns the decodable subset of a conversation's log.
func (uc *SyncUsecase) ListMessages(ctx context.Context, conversationID string) ([]domain.MessageRecord, error) {
	return uc.log.List(ctx, conversationID)
}
