package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"chatwidget/internal/model"
)

const (
	historyKey = "chatwidget:messages"
	dirtyKey   = "chatwidget:messages:dirty"
)

// HistoryCache keeps the full message list in redis. Writers mark the list
// dirty before invalidating it so that a concurrent reader holding an older
// list does not put it back.
type HistoryCache struct {
	client         *redisv9.Client
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

// cachedMessage carries RelatedID, which model.Message hides from JSON.
type cachedMessage struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	RelatedID *uint     `json:"related_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context) ([]model.Message, bool, error) {
	raw, err := c.client.Get(ctx, historyKey).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var cached []cachedMessage
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	messages := make([]model.Message, 0, len(cached))
	for _, m := range cached {
		messages = append(messages, model.Message{
			ID:        m.ID,
			Content:   m.Content,
			IsUser:    m.IsUser,
			RelatedID: m.RelatedID,
			CreatedAt: m.CreatedAt,
		})
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, messages []model.Message) error {
	cached := make([]cachedMessage, 0, len(messages))
	for _, m := range messages {
		cached = append(cached, cachedMessage{
			ID:        m.ID,
			Content:   m.Content,
			IsUser:    m.IsUser,
			RelatedID: m.RelatedID,
			CreatedAt: m.CreatedAt,
		})
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, historyKey, payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context) error {
	if err := c.client.Del(ctx, historyKey).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context) error {
	if err := c.client.Set(ctx, dirtyKey, "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}
