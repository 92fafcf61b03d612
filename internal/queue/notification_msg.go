package queue

import (
	"fmt"
	"strings"
	"time"
)

// NotificationMessage 是写入 Kafka 的通知事件，由 notifier 进程消费。
type NotificationMessage struct {
	JobID     string    `json:"job_id"`
	Type      string    `json:"type"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate 做最小字段校验，防止消费者处理脏消息。
func (m NotificationMessage) Validate() error {
	if m.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if m.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !strings.Contains(m.To, "@") {
		return fmt.Errorf("to must be an email address, got %q", m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}
