package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/parley-chat/parley/internal/domain"
	"github.com/parley-chat/parley/internal/present/rest/presenter"
	"github.com/parley-chat/parley/internal/service"
	"github.com/parley-chat/parley/internal/usecase"
)

type Handler struct {
	sync    *usecase.SyncUsecase
	account *usecase.AccountUsecase
	events  *service.EventService
}

// NewHandler wires the REST surface. events may be nil, which disables
// realtime push.
func NewHandler(
	sync *usecase.SyncUsecase,
	account *usecase.AccountUsecase,
	events *service.EventService,
) *Handler {
	return &Handler{
		sync:    sync,
		account: account,
		events:  events,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/register", h.handleRegister)
	e.GET("/api/v1/users", h.handleSearch)
	e.GET("/api/v1/conversations", h.handleListConversations)
	e.POST("/api/v1/conversations", h.handleCreateConversation)
	e.GET("/api/v1/conversations/exists", h.handleConversationExists)
	e.POST("/api/v1/conversations/:id/messages", h.handleAppendMessage)
	e.GET("/api/v1/conversations/:id/messages", h.handleListMessages)
	e.DELETE("/api/v1/conversations/:id", h.handleDeleteConversation)
	e.GET("/realtime", h.handleRealtime)
}

// conversationIDParam decodes the :id path segment. Conversation ids
// embed spaces and commas from their date component, so any correctly
// escaping client sends them percent-encoded.
func conversationIDParam(c echo.Context) string {
	raw := c.Param("id")
	id, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return id
}

func requester(c echo.Context) (usecase.Sender, bool) {
	id, ok := c.Get(domain.RequesterIdentityCtxKey).(domain.Identity)
	if !ok || id == "" {
		return usecase.Sender{}, false
	}
	name, _ := c.Get(domain.RequesterNameCtxKey).(string)
	return usecase.Sender{Identity: id, Name: name}, true
}

type messagePayload struct {
	Type      string  `json:"type"`
	Content   string  `json:"content"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (p messagePayload) body() (domain.MessageBody, error) {
	switch domain.MessageKind(p.Type) {
	case domain.KindText:
		return domain.TextBody(p.Content), nil
	case domain.KindPhoto:
		return domain.PhotoBody(p.Content), nil
	case domain.KindVideo:
		return domain.VideoBody(p.Content), nil
	case domain.KindLocation:
		if p.Content != "" {
			return domain.DecodeBody(p.Type, p.Content)
		}
		return domain.LocationBody(p.Longitude, p.Latitude), nil
	default:
		return domain.MessageBody{}, domain.UnsupportedKindError{Kind: p.Type}
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handler) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Email == "" || req.FirstName == "" {
		return presenter.BadRequestMessage(c, "email and first_name are required")
	}

	id, err := h.account.Register(ctx, usecase.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrAlreadyRegistered) {
			return presenter.Conflict(c, "user already registered")
		}
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok", "identity": id})
}

func (h *Handler) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()

	query := c.QueryParam("q")
	if query == "" {
		return presenter.BadRequestMessage(c, "q parameter is required")
	}

	entries, err := h.account.Search(ctx, query)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, entries)
}

func (h *Handler) handleListConversations(c echo.Context) error {
	ctx := c.Request().Context()

	self, ok := requester(c)
	if !ok {
		return presenter.Unauthorized(c, "requester identity is required")
	}

	list, err := h.sync.ListConversations(ctx, self.Identity)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return presenter.NotFound(c, "user not found")
		}
		return presenter.InternalError(c, err)
	}
	if list == nil {
		list = []domain.ConversationSummary{}
	}
	return presenter.OK(c, list)
}

type createConversationRequest struct {
	RecipientEmail string         `json:"recipient_email"`
	RecipientName  string         `json:"recipient_name"`
	Message        messagePayload `json:"message"`
}

func (h *Handler) handleCreateConversation(c echo.Context) error {
	ctx := c.Request().Context()

	self, ok := requester(c)
	if !ok {
		return presenter.Unauthorized(c, "requester identity is required")
	}

	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.RecipientEmail == "" {
		return presenter.BadRequestMessage(c, "recipient_email is required")
	}

	body, err := req.Message.body()
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	now := time.Now()
	msg := usecase.OutgoingMessage{
		ID:     domain.NewMessageID(req.RecipientEmail, self.Identity, now),
		Body:   body,
		SentAt: now,
	}

	res, err := h.sync.CreateConversation(ctx, self, req.RecipientEmail, req.RecipientName, msg)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return presenter.NotFound(c, "user not found")
		}
		return presenter.InternalError(c, err)
	}

	h.publishMessage(c, res.ConversationID, msg, self)

	return presenter.OK(c, echo.Map{
		"ok":                 true,
		"conversation_id":    res.ConversationID,
		"counterpart_synced": res.CounterpartErr == nil,
	})
}

func (h *Handler) handleConversationExists(c echo.Context) error {
	ctx := c.Request().Context()

	self, ok := requester(c)
	if !ok {
		return presenter.Unauthorized(c, "requester identity is required")
	}

	recipient := c.QueryParam("recipient")
	if recipient == "" {
		return presenter.BadRequestMessage(c, "recipient parameter is required")
	}

	id, err := h.sync.ConversationExists(ctx, self.Identity, recipient)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return presenter.NotFound(c, "conversation not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"conversation_id": id})
}

type appendMessageRequest struct {
	RecipientEmail string         `json:"recipient_email"`
	RecipientName  string         `json:"recipient_name"`
	Message        messagePayload `json:"message"`
}

func (h *Handler) handleAppendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	conversationID := conversationIDParam(c)

	self, ok := requester(c)
	if !ok {
		return presenter.Unauthorized(c, "requester identity is required")
	}

	var req appendMessageRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.RecipientEmail == "" {
		return presenter.BadRequestMessage(c, "recipient_email is required")
	}

	body, err := req.Message.body()
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	now := time.Now()
	msg := usecase.OutgoingMessage{
		ID:     domain.NewMessageID(req.RecipientEmail, self.Identity, now),
		Body:   body,
		SentAt: now,
	}

	err = h.sync.AppendMessage(ctx, conversationID, self, req.RecipientEmail, req.RecipientName, msg)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return presenter.NotFound(c, "conversation not found")
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return presenter.NotFound(c, "user not found")
		}
		return presenter.InternalError(c, err)
	}

	h.publishMessage(c, conversationID, msg, self)

	return presenter.OK(c, echo.Map{"ok": true})
}

func (h *Handler) handleListMessages(c echo.Context) error {
	ctx := c.Request().Context()
	conversationID := conversationIDParam(c)

	msgs, err := h.sync.ListMessages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return presenter.NotFound(c, "conversation not found")
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, msgs)
}

func (h *Handler) handleDeleteConversation(c echo.Context) error {
	ctx := c.Request().Context()
	conversationID := conversationIDParam(c)

	self, ok := requester(c)
	if !ok {
		return presenter.Unauthorized(c, "requester identity is required")
	}

	if err := h.sync.DeleteConversation(ctx, self.Identity, conversationID); err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"ok": true})
}

// publishMessage pushes the appended message onto the event bus.
// Best-effort: a publish failure never affects the caller's result.
func (h *Handler) publishMessage(c echo.Context, conversationID string, msg usecase.OutgoingMessage, self usecase.Sender) {
	if h.events == nil {
		return
	}
	ctx := c.Request().Context()

	record, err := domain.NewMessageRecord(msg.ID, msg.Body, self.Identity, self.Name, msg.SentAt)
	if err != nil {
		return
	}
	err = h.events.Publish(ctx, service.MessageEvent{
		ConversationID: conversationID,
		Message:        record,
	})
	if err != nil {
		slog.WarnContext(
			ctx, "event publish failed",
			slog.String("conversation", conversationID),
			slog.String("error", err.Error()),
			slog.String("module", "rest"),
		)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type     string   `json:"type"`
	Prefixes []string `json:"prefixes"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.events == nil {
		return presenter.BadRequestMessage(c, "realtime is not enabled")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan service.MessageEvent)

	go h.events.Realtime(ctx, input, output)

	// Buffered so the reader goroutine never blocks on it after the
	// write loop has already returned.
	quit := make(chan struct{}, 1)

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Prefixes:
				case <-ctx.Done():
					return
				}
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
