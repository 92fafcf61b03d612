package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ecommerce/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) Handle(_ context.Context, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, job.Email.To)
	if job.Email.Subject == "fail" {
		return errors.New("mailer down")
	}
	if job.Email.Subject == "panic" {
		panic("boom")
	}
	return nil
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestSinkProcessesInOrder(t *testing.T) {
	rec := &recorder{}
	s := NewSink(16, zap.NewNop(), WithHandler(JobSendEmail, rec))
	s.Start(context.Background())

	for _, to := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.NoError(t, s.Enqueue(NewEmailJob(to, "hi", "body")))
	}
	require.NoError(t, s.Shutdown(context.Background()))

	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, rec.list())
}

func TestSinkFailureDoesNotStopQueue(t *testing.T) {
	rec := &recorder{}
	s := NewSink(16, zap.NewNop(), WithHandler(JobSendEmail, rec))
	s.Start(context.Background())

	require.NoError(t, s.Enqueue(NewEmailJob("a@x.io", "fail", "")))
	require.NoError(t, s.Enqueue(NewEmailJob("b@x.io", "panic", "")))
	require.NoError(t, s.Enqueue(NewEmailJob("c@x.io", "ok", "")))
	require.NoError(t, s.Shutdown(context.Background()))

	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, rec.list())
}

func TestSinkQueueFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	h := HandlerFunc(func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-block
		return nil
	})
	s := NewSink(1, zap.NewNop(), WithHandler(JobSendEmail, h))
	s.Start(context.Background())

	require.NoError(t, s.Enqueue(NewEmailJob("a@x.io", "s", "")))
	<-started // 第一条已被取走，handler 卡住
	require.NoError(t, s.Enqueue(NewEmailJob("b@x.io", "s", "")))
	assert.ErrorIs(t, s.Enqueue(NewEmailJob("c@x.io", "s", "")), ErrQueueFull)

	close(block)
	require.NoError(t, s.Shutdown(context.Background()))
	assert.ErrorIs(t, s.Enqueue(NewEmailJob("d@x.io", "s", "")), ErrClosed)
}

func TestSinkJobTimeout(t *testing.T) {
	done := make(chan error, 1)
	h := HandlerFunc(func(ctx context.Context, job Job) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})
	s := NewSink(1, zap.NewNop(), WithHandler(JobSendEmail, h), WithJobTimeout(20*time.Millisecond))
	s.Start(context.Background())

	require.NoError(t, s.Enqueue(NewEmailJob("a@x.io", "s", "")))
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not cancelled by its timeout")
	}
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestSinkShutdownDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	h := HandlerFunc(func(ctx context.Context, job Job) error {
		<-block
		return nil
	})
	s := NewSink(4, zap.NewNop(), WithHandler(JobSendEmail, h), WithJobTimeout(time.Minute))
	s.Start(context.Background())
	require.NoError(t, s.Enqueue(NewEmailJob("a@x.io", "s", "")))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)
}

type fakePublisher struct {
	got []queue.NotificationMessage
}

func (f *fakePublisher) Publish(_ context.Context, msg queue.NotificationMessage) error {
	f.got = append(f.got, msg)
	return nil
}

func TestKafkaMailer(t *testing.T) {
	pub := &fakePublisher{}
	m := KafkaMailer{Producer: pub}

	job := NewEmailJob("buyer@example.com", "Payment Confirmed", "paid")
	require.NoError(t, m.Handle(context.Background(), job))
	require.Len(t, pub.got, 1)
	assert.Equal(t, job.ID, pub.got[0].JobID)
	assert.Equal(t, "SEND_EMAIL", pub.got[0].Type)

	assert.Error(t, m.Handle(context.Background(), NewEmailJob("", "x", "")))
	assert.Len(t, pub.got, 1)
}
