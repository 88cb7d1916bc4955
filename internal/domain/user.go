package domain

// UserRecord is the whole per-user document stored at /{identity}.
// The underlying store has no partial-field update primitive at this
// level, so every summary-list mutation rewrites the entire record.
type UserRecord struct {
	FirstName     string                `json:"first_name"`
	LastName      string                `json:"last_name"`
	Conversations []ConversationSummary `json:"conversations"`
}

func (u UserRecord) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// DirectoryEntry is one row of the flat /users directory used for
// search. The directory is read by identity resolution but is external
// to the synchronization write path.
type DirectoryEntry struct {
	Name      string   `json:"name"`
	SafeEmail Identity `json:"safe_email"`
}
