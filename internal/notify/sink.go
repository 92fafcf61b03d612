// Package notify 是进程内的异步通知队列：入队立即返回，单个 goroutine 按 FIFO 逐个执行。
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ecommerce/internal/apperr"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification queue is closed")
)

// Handler 执行一条任务。
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

// Enqueuer 是业务侧唯一依赖的能力。
type Enqueuer interface {
	Enqueue(job Job) error
}

// Sink 有界队列 + 单消费者。生命周期由服务进程持有：Start 启动，Shutdown 停止接收并排空。
type Sink struct {
	handlers   map[JobType]Handler
	jobs       chan Job
	jobTimeout time.Duration
	log        *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

type Option func(*Sink)

// WithJobTimeout 单个任务的执行上限，避免一个卡住的任务拖死整个队列。
func WithJobTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

func WithHandler(t JobType, h Handler) Option {
	return func(s *Sink) { s.handlers[t] = h }
}

func NewSink(size int, log *zap.Logger, opts ...Option) *Sink {
	if size <= 0 {
		size = 1
	}
	s := &Sink{
		handlers:   make(map[JobType]Handler),
		jobs:       make(chan Job, size),
		jobTimeout: 10 * time.Second,
		log:        log.With(zap.String("component", "notify")),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue 永不阻塞：队列满或已关闭时直接返回错误，由调用方记录日志。
func (s *Sink) Enqueue(job Job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start 启动消费 goroutine，ctx 只影响正在执行的任务。
func (s *Sink) Start(ctx context.Context) {
	go s.drain(ctx)
}

func (s *Sink) drain(ctx context.Context) {
	defer close(s.done)
	for job := range s.jobs {
		s.run(ctx, job)
	}
}

func (s *Sink) run(ctx context.Context, job Job) {
	// 任务 panic 也不能让队列停摆。
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
		}
	}()

	h, ok := s.handlers[job.Type]
	if !ok {
		s.log.Warn("unknown job type", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return
	}

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.jobTimeout)
	defer cancel()

	start := time.Now()
	if err := h.Handle(jobCtx, job); err != nil {
		s.log.Error("job failed",
			zap.String("job_id", job.ID),
			zap.String("type", string(job.Type)),
			zap.Error(apperr.Background("notify", err)),
		)
		return
	}
	s.log.Debug("job done", zap.String("job_id", job.ID), zap.Duration("elapsed", time.Since(start)))
}

// Shutdown 停止接收新任务，等待已入队的任务执行完；ctx 到期则放弃等待。
func (s *Sink) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.jobs)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification drain: %w (%d jobs left)", ctx.Err(), len(s.jobs))
	}
}
