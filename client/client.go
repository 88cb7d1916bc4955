// Package client is a small Go client for the parley HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/parley-chat/parley/internal/domain"
)

const (
	defaultTimeout = 3 * time.Second
	userAgent      = "parley-client/1.0"
)

type Client struct {
	client  *http.Client
	cache   *cache.Cache
	baseURL string

	// requester is sent on every call that acts on behalf of a user.
	email string
	name  string
}

func New(baseURL, email, name string) *Client {
	httpClient := &http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:  httpClient,
		cache:   cache.New(10*time.Minute, 15*time.Minute),
		baseURL: baseURL,
		email:   email,
		name:    name,
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	if c.email != "" {
		req.Header.Set(domain.RequesterHeader, c.email)
		req.Header.Set(domain.RequesterNameHeader, c.name)
	}
	return http.DefaultTransport.RoundTrip(req)
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body any, response any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return &apiError{Status: resp.StatusCode, Message: errBody.Error}
	}

	if response == nil {
		return nil
	}
	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

// Register creates the account for email. No requester header is needed.
func (c *Client) Register(ctx context.Context, email, firstName, lastName string) (domain.Identity, error) {
	var res struct {
		Identity domain.Identity `json:"identity"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/register", map[string]string{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
	}, &res)
	if err != nil {
		return "", err
	}
	return res.Identity, nil
}

// Search queries the user directory by name or address prefix.
func (c *Client) Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error) {
	var entries []domain.DirectoryEntry
	err := c.do(ctx, http.MethodGet, "/api/v1/users?q="+url.QueryEscape(query), nil, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

type Message struct {
	Type      string  `json:"type"`
	Content   string  `json:"content"`
	Longitude float64 `json:"longitude,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
}

type conversationRequest struct {
	RecipientEmail string  `json:"recipient_email"`
	RecipientName  string  `json:"recipient_name"`
	Message        Message `json:"message"`
}

// CreateConversation starts a conversation with the recipient, seeded
// with the first message, and returns the new conversation id.
func (c *Client) CreateConversation(ctx context.Context, recipientEmail, recipientName string, msg Message) (string, error) {
	var res struct {
		ConversationID string `json:"conversation_id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/conversations", conversationRequest{
		RecipientEmail: recipientEmail,
		RecipientName:  recipientName,
		Message:        msg,
	}, &res)
	if err != nil {
		return "", err
	}
	c.cache.Set(existsCacheKey(recipientEmail), res.ConversationID, cache.DefaultExpiration)
	return res.ConversationID, nil
}

// SendMessage appends a message to an existing conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID, recipientEmail, recipientName string, msg Message) error {
	return c.do(ctx, http.MethodPost, "/api/v1/conversations/"+url.PathEscape(conversationID)+"/messages", conversationRequest{
		RecipientEmail: recipientEmail,
		RecipientName:  recipientName,
		Message:        msg,
	}, nil)
}

// ConversationWith resolves the id of an existing conversation with the
// recipient, caching hits. A miss returns IsNotFound.
func (c *Client) ConversationWith(ctx context.Context, recipientEmail string) (string, error) {
	cacheKey := existsCacheKey(recipientEmail)
	if x, found := c.cache.Get(cacheKey); found {
		return x.(string), nil
	}

	var res struct {
		ConversationID string `json:"conversation_id"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/conversations/exists?recipient="+url.QueryEscape(recipientEmail), nil, &res)
	if err != nil {
		return "", err
	}
	c.cache.Set(cacheKey, res.ConversationID, cache.DefaultExpiration)
	return res.ConversationID, nil
}

// Conversations lists the caller's conversation summaries.
func (c *Client) Conversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	var list []domain.ConversationSummary
	err := c.do(ctx, http.MethodGet, "/api/v1/conversations", nil, &list)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Messages lists the full message log of a conversation.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]domain.MessageRecord, error) {
	var msgs []domain.MessageRecord
	err := c.do(ctx, http.MethodGet, "/api/v1/conversations/"+url.PathEscape(conversationID)+"/messages", nil, &msgs)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteConversation removes the conversation from the caller's own
// list. The other participant keeps theirs.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	err := c.do(ctx, http.MethodDelete, "/api/v1/conversations/"+url.PathEscape(conversationID), nil, nil)
	if err != nil {
		return err
	}
	c.cache.Flush()
	return nil
}

func existsCacheKey(recipientEmail string) string {
	return "conversation:" + string(domain.Normalize(recipientEmail))
}
