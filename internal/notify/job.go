package notify

import (
	"time"

	"github.com/google/uuid"
)

type JobType string

const JobSendEmail JobType = "SEND_EMAIL"

type EmailData struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Job 一条异步任务，目前只有发送邮件一种。
type Job struct {
	ID        string
	Type      JobType
	Email     EmailData
	CreatedAt time.Time
}

// NewEmailJob 生成带唯一 ID 的发邮件任务。
func NewEmailJob(to, subject, body string) Job {
	return Job{
		ID:        uuid.NewString(),
		Type:      JobSendEmail,
		Email:     EmailData{To: to, Subject: subject, Body: body},
		CreatedAt: time.Now().UTC(),
	}
}
