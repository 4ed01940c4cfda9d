package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"chatwidget/internal/model"
	"chatwidget/internal/platform/rabbitmq"
)

type ReplyRegenerator interface {
	RegenerateReply(ctx context.Context, job model.ReplyJob) error
}

// ReplyWorker consumes reply jobs published after message edits and rewrites
// the linked assistant reply.
type ReplyWorker struct {
	conn      *amqp.Connection
	handler   ReplyRegenerator
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReplyWorker(conn *amqp.Connection, handler ReplyRegenerator, queueName string, logger *zap.Logger) *ReplyWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyWorker{
		conn:      conn,
		handler:   handler,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *ReplyWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.consume(ctx, deliveries, func() { _ = ch.Close() })
	return nil
}

func (w *ReplyWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery, onExit func()) {
	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if onExit != nil {
			defer onExit()
		}

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()
}

func (w *ReplyWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job model.ReplyJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.Warn("worker decode reply job failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.handler.RegenerateReply(ctx, job); err != nil {
		w.logger.Error("worker regenerate reply failed",
			zap.Uint("message_id", job.UserMessageID),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *ReplyWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
