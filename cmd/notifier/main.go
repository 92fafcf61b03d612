package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ecommerce/internal/config"
	"ecommerce/internal/logging"
	"ecommerce/internal/queue"

	"go.uber.org/zap"
)

// logDeliverer 把邮件写进日志；接入真实邮件服务时替换这里。
type logDeliverer struct {
	log *zap.Logger
}

func (d logDeliverer) Deliver(_ context.Context, msg queue.NotificationMessage) error {
	d.log.Info("email delivered",
		zap.String("job_id", msg.JobID),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("component", "notifier"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := queue.NewConsumer(cfg.KafkaBrokers, cfg.NotifyTopic, cfg.NotifyGroupID, logDeliverer{log: log}, log)
	defer func() { _ = c.Close() }()

	log.Info("notifier consuming",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.NotifyTopic),
		zap.String("group", cfg.NotifyGroupID),
	)
	c.Run(ctx)
	log.Info("notifier stopped")
}
