package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"supermock/internal/metrics"
	"supermock/internal/worker"
)

// Notifier delivers a text message to a Telegram chat without blocking.
type Notifier interface {
	Notify(chatID int64, text string)
}

// Sender sends one message synchronously.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// BotNotifier queues messages on a worker pool.
type BotNotifier struct {
	pool   *worker.WorkerPool
	sender Sender
	logger logrus.FieldLogger
}

func NewBotNotifier(pool *worker.WorkerPool, sender Sender, logger logrus.FieldLogger) *BotNotifier {
	return &BotNotifier{pool: pool, sender: sender, logger: logger}
}

// Notify queues the message. A full queue drops it.
func (n *BotNotifier) Notify(chatID int64, text string) {
	task := &notificationTask{sender: n.sender, chatID: chatID, text: text}
	if !n.pool.Submit(task) {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		n.logger.WithField("chat_id", chatID).Warn("Notification queue full, message dropped")
	}
}

// NotificationDeadLetter is the worker pool hook for notifications that ran
// out of attempts.
func NotificationDeadLetter(task worker.Task, err error) {
	if _, ok := task.(*notificationTask); ok {
		metrics.Notifications.WithLabelValues("failed").Inc()
	}
}

type notificationTask struct {
	sender Sender
	chatID int64
	text   string
}

func (t *notificationTask) Process(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.sender.SendMessage(t.chatID, t.text); err != nil {
		return fmt.Errorf("send notification to %d: %w", t.chatID, err)
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	return nil
}
