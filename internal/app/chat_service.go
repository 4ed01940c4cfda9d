package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chatwidget/internal/ai"
	"chatwidget/internal/model"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageNotFound = errors.New("message not found")
	ErrLLMConfig       = errors.New("llm config is invalid")
	ErrReplyFailed     = errors.New("reply generation failed")
)

const emptyReplyFallback = "The model returned an empty response."

type MessageStore interface {
	CreatePair(ctx context.Context, userMessage, reply *model.Message) error
	List(ctx context.Context) ([]model.Message, error)
	GetUserMessage(ctx context.Context, id uint) (*model.Message, error)
	GetReply(ctx context.Context, userMessageID uint) (*model.Message, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	DeleteWithReply(ctx context.Context, id uint) error
}

type Responder interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, messages []model.Message) error
	DeleteHistory(ctx context.Context) error
	MarkDirty(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
}

type ReplyPublisher interface {
	Publish(ctx context.Context, job model.ReplyJob) error
}

type LLMSettings struct {
	Chat         ai.ChatConfig
	SystemPrompt string
}

// ChatService owns the message backend: every user message gets an assistant
// reply, and only user messages can be edited or deleted.
type ChatService struct {
	store        MessageStore
	responder    Responder
	historyCache HistoryCache
	publisher    ReplyPublisher
	llm          LLMSettings
	logger       *zap.Logger
}

type Option func(*ChatService)

// WithHistoryCache serves list requests from cache between mutations.
func WithHistoryCache(cache HistoryCache) Option {
	return func(s *ChatService) { s.historyCache = cache }
}

// WithReplyPublisher moves reply regeneration after an edit onto a queue.
func WithReplyPublisher(publisher ReplyPublisher) Option {
	return func(s *ChatService) { s.publisher = publisher }
}

func NewChatService(store MessageStore, responder Responder, llm LLMSettings, logger *zap.Logger, opts ...Option) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ChatService{
		store:     store,
		responder: responder,
		llm:       llm,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChatService) ListMessages(ctx context.Context) ([]model.Message, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, messages)
		}
	}
	return messages, nil
}

// CreateMessage stores content as a user message together with a generated
// reply and returns both, user message first.
func (s *ChatService) CreateMessage(ctx context.Context, content string) ([]model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrMessageEmpty
	}

	replyContent, err := s.generateReply(ctx, content)
	if err != nil {
		return nil, err
	}

	userMessage := &model.Message{Content: content, IsUser: true}
	reply := &model.Message{Content: replyContent, IsUser: false}

	s.invalidateHistory(ctx)
	if err := s.store.CreatePair(ctx, userMessage, reply); err != nil {
		return nil, err
	}
	return []model.Message{*userMessage, *reply}, nil
}

// UpdateMessage rewrites a user message and refreshes its reply, inline or
// through the reply queue when one is configured.
func (s *ChatService) UpdateMessage(ctx context.Context, id uint, content string) (*model.Message, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}

	message, err := s.store.GetUserMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}

	s.invalidateHistory(ctx)
	if err := s.store.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}
	message.Content = content

	job := model.ReplyJob{UserMessageID: id, Content: content}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, job)
		if err == nil {
			return message, nil
		}
		s.logger.Warn("enqueue reply job failed, regenerating inline",
			zap.Uint("message_id", id),
			zap.Error(err),
		)
	}
	if err := s.RegenerateReply(ctx, job); err != nil {
		return nil, err
	}
	return message, nil
}

// RegenerateReply rewrites the reply linked to job.UserMessageID. Jobs for
// messages that were deleted or edited again since are dropped.
func (s *ChatService) RegenerateReply(ctx context.Context, job model.ReplyJob) error {
	message, err := s.store.GetUserMessage(ctx, job.UserMessageID)
	if err != nil {
		return err
	}
	if message == nil || message.Content != job.Content {
		return nil
	}

	reply, err := s.store.GetReply(ctx, job.UserMessageID)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}

	replyContent, err := s.generateReply(ctx, job.Content)
	if err != nil {
		return err
	}

	s.invalidateHistory(ctx)
	return s.store.UpdateContent(ctx, reply.ID, replyContent)
}

func (s *ChatService) DeleteMessage(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}

	message, err := s.store.GetUserMessage(ctx, id)
	if err != nil {
		return err
	}
	if message == nil {
		return ErrMessageNotFound
	}

	s.invalidateHistory(ctx)
	return s.store.DeleteWithReply(ctx, id)
}

func (s *ChatService) generateReply(ctx context.Context, userContent string) (string, error) {
	cfg := s.llm.Chat
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return "", ErrLLMConfig
	}

	out, err := s.responder.Complete(ctx, cfg, ai.Prompt(s.llm.SystemPrompt, userContent))
	if err != nil {
		s.logger.Error("generate reply failed", zap.String("model", cfg.Model), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrReplyFailed, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		out = emptyReplyFallback
	}
	return out, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx)
	_ = s.historyCache.DeleteHistory(ctx)
}
