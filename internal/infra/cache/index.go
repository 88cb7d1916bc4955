package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/parley-chat/parley/internal/domain"
)

// ConversationIndex memoizes (self, counterpart) -> conversation id to
// short-cut existence scans. Entries expire so a stale mapping is
// bounded; the canonical summary lists in the tree store stay the only
// source of truth.
type ConversationIndex struct {
	c *gocache.Cache
}

func NewConversationIndex(ttl time.Duration) *ConversationIndex {
	return &ConversationIndex{
		c: gocache.New(ttl, 2*ttl),
	}
}

func key(self, counterpart domain.Identity) string {
	return string(self) + "|" + string(counterpart)
}

func (i *ConversationIndex) Get(self, counterpart domain.Identity) (string, bool) {
	v, ok := i.c.Get(key(self, counterpart))
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func (i *ConversationIndex) Set(self, counterpart domain.Identity, conversationID string) {
	i.c.SetDefault(key(self, counterpart), conversationID)
}

func (i *ConversationIndex) Drop(self, counterpart domain.Identity) {
	i.c.Delete(key(self, counterpart))
}
