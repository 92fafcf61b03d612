package queue

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deliverer 真正发送一条通知。
type Deliverer interface {
	Deliver(ctx context.Context, msg NotificationMessage) error
}

// messageReader 是 kafka.Reader 用到的那部分。
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	r       messageReader
	deliver Deliverer
	log     *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, deliver Deliverer, log *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		deliver: deliver,
		log:     log,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

// Run 阻塞消费直到 ctx 取消；读失败时返回，非取消导致的错误会记日志。
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Error("consumer read message", zap.Error(err))
			}
			return
		}
		c.handle(ctx, m.Value)
	}
}

// handle 脏消息与投递失败都只记日志，不阻塞后续消息。
func (c *Consumer) handle(ctx context.Context, value []byte) {
	var msg NotificationMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		c.log.Warn("consumer unmarshal", zap.Error(err))
		return
	}
	if err := msg.Validate(); err != nil {
		c.log.Warn("consumer drop invalid message", zap.Error(err))
		return
	}
	if err := c.deliver.Deliver(ctx, msg); err != nil {
		c.log.Error("deliver notification", zap.String("job_id", msg.JobID), zap.Error(err))
	}
}
