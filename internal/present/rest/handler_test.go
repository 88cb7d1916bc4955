package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/infra/repository"
	"github.com/parley-chat/parley/internal/infra/treestore"
	"github.com/parley-chat/parley/internal/present/rest/middleware"
	"github.com/parley-chat/parley/internal/usecase"
)

// --- fakes ---

type fakeDirectory struct {
	entries []domain.DirectoryEntry
}

func (f *fakeDirectory) Register(ctx context.Context, entry domain.DirectoryEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeDirectory) Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error) {
	var out []domain.DirectoryEntry
	for _, e := range f.entries {
		if strings.HasPrefix(e.Name, query) || strings.HasPrefix(string(e.SafeEmail), query) {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*echo.Echo, *usecase.AccountUsecase) {
	t.Helper()

	store := treestore.NewMemoryStore()
	summaries := repository.NewSummaryRepository(store)
	log := repository.NewMessageLogRepository(store)

	sync := usecase.NewSyncUsecase(summaries, log, nil)
	account := usecase.NewAccountUsecase(summaries, &fakeDirectory{})

	h := NewHandler(sync, account, nil)

	e := echo.New()
	e.Use(middleware.IdentifyRequester)
	h.RegisterRoutes(e)

	return e, account
}

func doJSON(e *echo.Echo, method, path string, body any, requester string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if requester != "" {
		req.Header.Set(domain.RequesterHeader, requester)
		req.Header.Set(domain.RequesterNameHeader, "Requester Name")
	}
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)
	return res
}

func register(t *testing.T, e *echo.Echo, email, first, last string) {
	t.Helper()
	res := doJSON(e, http.MethodPost, "/api/v1/register", map[string]string{
		"email":      email,
		"first_name": first,
		"last_name":  last,
	}, "")
	if res.Code != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", email, res.Code, res.Body.String())
	}
}

// --- tests ---

func TestHandleRegisterAndDuplicate(t *testing.T) {
	e, _ := newTestServer(t)

	register(t, e, "alice@x.com", "Alice", "Smith")

	res := doJSON(e, http.MethodPost, "/api/v1/register", map[string]string{
		"email":      "alice@x.com",
		"first_name": "Alice",
	}, "")
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate register, got %d", res.Code)
	}
}

func TestHandleCreateConversationFlow(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "alice@x.com", "Alice", "Smith")
	register(t, e, "bob@x.com", "Bob", "Jones")

	res := doJSON(e, http.MethodPost, "/api/v1/conversations", map[string]any{
		"recipient_email": "bob@x.com",
		"recipient_name":  "Bob",
		"message":         map[string]any{"type": "text", "content": "hi"},
	}, "alice@x.com")
	if res.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", res.Code, res.Body.String())
	}

	var created struct {
		OK                bool   `json:"ok"`
		ConversationID    string `json:"conversation_id"`
		CounterpartSynced bool   `json:"counterpart_synced"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if !created.OK || !created.CounterpartSynced || !strings.HasPrefix(created.ConversationID, "conversation_") {
		t.Fatalf("unexpected create response %+v", created)
	}

	// Both parties see the conversation.
	for _, who := range []string{"alice@x.com", "bob@x.com"} {
		res = doJSON(e, http.MethodGet, "/api/v1/conversations", nil, who)
		if res.Code != http.StatusOK {
			t.Fatalf("list for %s: status %d", who, res.Code)
		}
		var list []domain.ConversationSummary
		if err := json.Unmarshal(res.Body.Bytes(), &list); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		if len(list) != 1 || list[0].ID != created.ConversationID {
			t.Fatalf("%s: unexpected summary list %+v", who, list)
		}
	}

	// The existence check resolves the same id from the other side.
	res = doJSON(e, http.MethodGet, "/api/v1/conversations/exists?recipient=alice@x.com", nil, "bob@x.com")
	if res.Code != http.StatusOK {
		t.Fatalf("exists: status %d body %s", res.Code, res.Body.String())
	}
	var exists struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &exists); err != nil {
		t.Fatalf("decode exists: %v", err)
	}
	if exists.ConversationID != created.ConversationID {
		t.Fatalf("exists id %q != created id %q", exists.ConversationID, created.ConversationID)
	}

	// The id embeds spaces and commas, so it travels percent-escaped
	// like any real client would send it.
	res = doJSON(e, http.MethodPost, "/api/v1/conversations/"+url.PathEscape(created.ConversationID)+"/messages", map[string]any{
		"recipient_email": "alice@x.com",
		"recipient_name":  "Alice",
		"message":         map[string]any{"type": "text", "content": "hi back"},
	}, "bob@x.com")
	if res.Code != http.StatusOK {
		t.Fatalf("append: status %d body %s", res.Code, res.Body.String())
	}

	res = doJSON(e, http.MethodGet, "/api/v1/conversations/"+url.PathEscape(created.ConversationID)+"/messages", nil, "alice@x.com")
	if res.Code != http.StatusOK {
		t.Fatalf("messages: status %d", res.Code)
	}
	var msgs []domain.MessageRecord
	if err := json.Unmarshal(res.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].Content != "hi back" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestHandleAppendMessageMissingConversation(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "alice@x.com", "Alice", "Smith")
	register(t, e, "bob@x.com", "Bob", "Jones")

	res := doJSON(e, http.MethodPost, "/api/v1/conversations/conversation_nope/messages", map[string]any{
		"recipient_email": "bob@x.com",
		"recipient_name":  "Bob",
		"message":         map[string]any{"type": "text", "content": "hi"},
	}, "alice@x.com")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing conversation, got %d body %s", res.Code, res.Body.String())
	}
}

func TestHandleCreateConversationRequiresRequester(t *testing.T) {
	e, _ := newTestServer(t)

	res := doJSON(e, http.MethodPost, "/api/v1/conversations", map[string]any{
		"recipient_email": "bob@x.com",
		"message":         map[string]any{"type": "text", "content": "hi"},
	}, "")
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without requester header, got %d", res.Code)
	}
}

func TestHandleCreateConversationRejectsBadPayload(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "alice@x.com", "Alice", "Smith")

	res := doJSON(e, http.MethodPost, "/api/v1/conversations", map[string]any{
		"recipient_email": "bob@x.com",
		"message":         map[string]any{"type": "sticker", "content": "???"},
	}, "alice@x.com")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported kind, got %d", res.Code)
	}
}

func TestHandleDeleteConversationLocality(t *testing.T) {
	e, _ := newTestServer(t)
	register(t, e, "alice@x.com", "Alice", "Smith")
	register(t, e, "bob@x.com", "Bob", "Jones")

	res := doJSON(e, http.MethodPost, "/api/v1/conversations", map[string]any{
		"recipient_email": "bob@x.com",
		"recipient_name":  "Bob",
		"message":         map[string]any{"type": "text", "content": "hi"},
	}, "alice@x.com")
	var created struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	res = doJSON(e, http.MethodDelete, "/api/v1/conversations/"+url.PathEscape(created.ConversationID), nil, "alice@x.com")
	if res.Code != http.StatusOK {
		t.Fatalf("delete: status %d", res.Code)
	}

	res = doJSON(e, http.MethodGet, "/api/v1/conversations", nil, "alice@x.com")
	if !bytes.Equal(bytes.TrimSpace(res.Body.Bytes()), []byte("[]")) {
		t.Fatalf("expected empty list for alice, got %s", res.Body.String())
	}

	res = doJSON(e, http.MethodGet, "/api/v1/conversations", nil, "bob@x.com")
	var bobList []domain.ConversationSummary
	if err := json.Unmarshal(res.Body.Bytes(), &bobList); err != nil {
		t.Fatalf("decode bob list: %v", err)
	}
	if len(bobList) != 1 {
		t.Fatalf("bob's summary must survive alice's delete, got %+v", bobList)
	}
}

func TestHandleSearchDirectory(t *testing.T) {
	e, account := newTestServer(t)
	register(t, e, "alice@x.com", "Alice", "Smith")

	entries, err := account.Search(context.Background(), "Alice")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one directory entry, got %+v err=%v", entries, err)
	}

	res := doJSON(e, http.MethodGet, "/api/v1/users?q=Alice", nil, "")
	if res.Code != http.StatusOK {
		t.Fatalf("search: status %d", res.Code)
	}
	var got []domain.DirectoryEntry
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(got) != 1 || got[0].SafeEmail != domain.Normalize("alice@x.com") {
		t.Fatalf("unexpected search result %+v", got)
	}
}
