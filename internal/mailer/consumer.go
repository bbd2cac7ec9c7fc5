package mailer

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

// Sender 由 *mail.Client 实现
type Sender interface {
	DialAndSend(messages ...*mail.Msg) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeDrop
	outcomeRequeue
)

type Consumer struct {
	composer *Composer
	sender   Sender
	logger   *slog.Logger
}

func NewConsumer(composer *Composer, sender Sender, logger *slog.Logger) *Consumer {
	return &Consumer{
		composer: composer,
		sender:   sender,
		logger:   logger,
	}
}

func (c *Consumer) Consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("消息通道已关闭")
				return
			}

			switch c.handle(msg.Body) {
			case outcomeAck:
				_ = msg.Ack(false)
			case outcomeDrop:
				_ = msg.Nack(false, false)
			case outcomeRequeue:
				_ = msg.Nack(false, true)
			}
		}
	}
}

// handle 只有发送失败时才重新入队，无法解析或构建的消息重试也不会成功
func (c *Consumer) handle(body []byte) outcome {
	m := domain.MailMessage{}
	if err := json.Unmarshal(body, &m); err != nil {
		c.logger.Error("邮件信息反序列化失败", slog.String("error", err.Error()))
		return outcomeDrop
	}
	c.logger.Info("收到邮件", slog.String("type", m.Type), slog.String("to", m.To))

	msg, err := c.composer.Compose(m)
	if err != nil {
		c.logger.Error("无法构建邮件", slog.String("error", err.Error()))
		return outcomeDrop
	}

	if err := c.sender.DialAndSend(msg); err != nil {
		c.logger.Error("邮件发送失败", slog.String("error", err.Error()))
		return outcomeRequeue
	}

	return outcomeAck
}
