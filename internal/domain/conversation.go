package domain

// ConversationIDPrefix prefixes every conversation id. The id is
// generated once, from the first message's id, and is stable for the
// conversation's lifetime.
const ConversationIDPrefix = "conversation_"

func ConversationID(firstMessageID string) string {
	return ConversationIDPrefix + firstMessageID
}

// LatestMessage is the denormalized snapshot of the most recently
// appended message, embedded in each party's conversation summary.
type LatestMessage struct {
	Date    string `json:"date"`
	Message string `json:"message"`
	IsRead  bool   `json:"is_read"`
	Kind    string `json:"type"`
}

// ConversationSummary is one party's denormalized index entry for a
// conversation. Both parties hold a summary with the same id, but the
// counterpart fields differ: each points at the other.
type ConversationSummary struct {
	ID            string        `json:"id"`
	ReceiverEmail Identity      `json:"receiver_email"`
	Name          string        `json:"name"`
	LatestMessage LatestMessage `json:"latest_message"`
}

// The list transforms below are pure: they never mutate their input and
// carry no transport concerns. Every store-level list mutation is a
// read, one of these transforms, then a whole-record write-back.

// AppendOrReplaceSummary returns the list with s applied: if a summary
// with the same id exists, only its latest-message snapshot is replaced
// and its position is unchanged; otherwise s is appended at the end.
// Reapplying an identical summary yields an equal list.
func AppendOrReplaceSummary(list []ConversationSummary, s ConversationSummary) []ConversationSummary {
	out := make([]ConversationSummary, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == s.ID {
			out[i].LatestMessage = s.LatestMessage
			return out
		}
	}
	return append(out, s)
}

// RemoveSummary returns the list with the first summary matching
// conversationID removed. Absence is a no-op, never an error.
func RemoveSummary(list []ConversationSummary, conversationID string) []ConversationSummary {
	for i := range list {
		if list[i].ID == conversationID {
			out := make([]ConversationSummary, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
	}
	out := make([]ConversationSummary, len(list))
	copy(out, list)
	return out
}

// FindSummary linear-scans for the first summary with the given id.
func FindSummary(list []ConversationSummary, conversationID string) (ConversationSummary, bool) {
	for _, s := range list {
		if s.ID == conversationID {
			return s, true
		}
	}
	return ConversationSummary{}, false
}

// FindSummaryWith linear-scans for the first summary whose counterpart
// identity matches. No secondary index is maintained; existence checks
// are O(n) over the live list.
func FindSummaryWith(list []ConversationSummary, counterpart Identity) (ConversationSummary, bool) {
	for _, s := range list {
		if s.ReceiverEmail == counterpart {
			return s, true
		}
	}
	return ConversationSummary{}, false
}
