package notify

import (
	"context"

	"ecommerce/internal/queue"

	"go.uber.org/zap"
)

// LogMailer 只把邮件内容写进日志，开发环境默认使用。
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Handle(_ context.Context, job Job) error {
	m.Log.Info("email sent",
		zap.String("job_id", job.ID),
		zap.String("to", job.Email.To),
		zap.String("subject", job.Email.Subject),
		zap.String("body", job.Email.Body),
	)
	return nil
}

// Publisher 抽象 Kafka 写入，便于测试替换。
type Publisher interface {
	Publish(ctx context.Context, msg queue.NotificationMessage) error
}

// KafkaMailer 把邮件任务投递到 Kafka，由独立的 notifier 进程真正发送。
type KafkaMailer struct {
	Producer Publisher
}

func (m KafkaMailer) Handle(ctx context.Context, job Job) error {
	msg := queue.NotificationMessage{
		JobID:     job.ID,
		Type:      string(job.Type),
		To:        job.Email.To,
		Subject:   job.Email.Subject,
		Body:      job.Email.Body,
		CreatedAt: job.CreatedAt,
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return m.Producer.Publish(ctx, msg)
}
