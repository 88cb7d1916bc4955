package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError. An empty Resource
// matches any NotFoundError.
func (e NotFoundError) Is(target error) bool {
	switch t := target.(type) {
	case NotFoundError:
		return t.Resource == "" || t.Resource == e.Resource
	case *NotFoundError:
		return t.Resource == "" || t.Resource == e.Resource
	}
	return false
}

var (
	// ErrNotFound is the sentinel error for missing resources.
	ErrNotFound = NotFoundError{}

	// ErrUserNotFound means the user record for a normalized identity is
	// absent. Fatal for the current call, never retried.
	ErrUserNotFound = NotFoundError{Resource: "user"}

	// ErrConversationNotFound means no message log exists for a
	// conversation id. Fatal for append; logs are only created by the
	// conversation-creation path.
	ErrConversationNotFound = NotFoundError{Resource: "conversation"}
)

// RemoteError wraps a transient transport failure from the tree store.
// The engine does not retry these; the caller may safely re-invoke the
// whole operation.
type RemoteError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed at %q: %v", e.Op, e.Path, e.Err)
}

func (e RemoteError) Unwrap() error {
	return e.Err
}

// Is enables errors.Is matching on RemoteError. An empty Op matches
// both reads and writes.
func (e RemoteError) Is(target error) bool {
	switch t := target.(type) {
	case RemoteError:
		return t.Op == "" || t.Op == e.Op
	case *RemoteError:
		return t.Op == "" || t.Op == e.Op
	}
	return false
}

var (
	ErrRemoteRead  = RemoteError{Op: "read"}
	ErrRemoteWrite = RemoteError{Op: "write"}
)

// UnsupportedKindError means a message record carries a kind tag the
// codec does not recognize. Non-retryable; indicates schema drift.
type UnsupportedKindError struct {
	Kind string
}

func (e UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported message kind %q", e.Kind)
}

func (e UnsupportedKindError) Is(target error) bool {
	switch target.(type) {
	case UnsupportedKindError, *UnsupportedKindError:
		return true
	}
	return false
}

// MalformedContentError means a message record's content does not parse
// for its kind. Non-retryable; indicates data corruption.
type MalformedContentError struct {
	Kind   MessageKind
	Reason string
}

func (e MalformedContentError) Error() string {
	return fmt.Sprintf("malformed %s content: %s", e.Kind, e.Reason)
}

func (e MalformedContentError) Is(target error) bool {
	switch target.(type) {
	case MalformedContentError, *MalformedContentError:
		return true
	}
	return false
}
