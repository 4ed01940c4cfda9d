package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatwidget/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreatePair stores a user message and its reply in one transaction. The
// reply's RelatedID is set to the id assigned to the user message.
func (r *MessageRepository) CreatePair(ctx context.Context, userMessage, reply *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMessage).Error; err != nil {
			return err
		}
		reply.RelatedID = &userMessage.ID
		return tx.Create(reply).Error
	})
	if err != nil {
		return fmt.Errorf("create message pair failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) List(ctx context.Context) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// GetUserMessage returns nil, nil when no user-authored message has the id.
func (r *MessageRepository) GetUserMessage(ctx context.Context, id uint) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).Where("id = ? AND is_user = ?", id, true).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user message failed: %w", err)
	}
	return &message, nil
}

// GetReply returns nil, nil when the user message has no linked reply.
func (r *MessageRepository) GetReply(ctx context.Context, userMessageID uint) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).Where("related_id = ? AND is_user = ?", userMessageID, false).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reply failed: %w", err)
	}
	return &message, nil
}

func (r *MessageRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	if err := r.db.WithContext(ctx).Model(&model.Message{}).Where("id = ?", id).Update("content", content).Error; err != nil {
		return fmt.Errorf("update message content failed: %w", err)
	}
	return nil
}

// DeleteWithReply removes a user message and any reply linked to it.
func (r *MessageRepository) DeleteWithReply(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("related_id = ? AND is_user = ?", id, false).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Message{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete message failed: %w", err)
	}
	return nil
}
