// Package worker runs CPU-bound image work on a bounded set of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/anoixa/image-tiers/utils/logger"
	"go.uber.org/zap"
)

// ErrPoolStopped 协程池已停止
var ErrPoolStopped = errors.New("worker pool stopped")

// Task 任务接口
type Task interface {
	Execute()
}

// TaskFunc 函数适配为 Task
type TaskFunc func()

func (f TaskFunc) Execute() { f() }

// Stats 运行统计
type Stats struct {
	Workers   int
	Queued    int
	Running   int64
	Completed uint64
	Panics    uint64
}

// Pool 有界协程池
type Pool struct {
	workers int
	queue   chan Task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	started bool

	running   atomic.Int64
	completed atomic.Uint64
	panics    atomic.Uint64
}

// NewPool 创建协程池，workers<=0 时使用 CPU 数
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		queue:   make(chan Task, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 启动工作协程，重复调用无效果
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.started = true
	logger.L.Info("worker pool started", zap.Int("workers", p.workers), zap.Int("queue", cap(p.queue)))
}

// Stop 停止接收任务并等待执行中的任务结束，排队中的任务被丢弃
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	logger.L.Info("worker pool stopped", zap.Uint64("completed", p.completed.Load()))
}

// Submit 非阻塞提交，队列满或已停止时返回 false
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.ctx.Done():
		return false
	default:
	}

	select {
	case p.queue <- task:
		return true
	default:
		logger.L.Warn("worker pool queue is full, task dropped")
		return false
	}
}

// Do 提交 fn 并等待其完成
// ctx 结束时停止等待并返回 ctx.Err()，已开始的 fn 仍会运行完毕
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if p.ctx.Err() != nil {
		return ErrPoolStopped
	}

	done := make(chan error, 1)
	task := TaskFunc(func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("worker task panicked: %v", r)
				p.panics.Add(1)
			}
			done <- err
		}()
		err = fn()
	})

	select {
	case p.queue <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		// 停止时正在执行的任务会被等待完成
		select {
		case err := <-done:
			return err
		default:
			return ErrPoolStopped
		}
	}
}

// Stats 返回运行统计
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.queue),
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Panics:    p.panics.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.queue:
			p.execute(task)
		}
	}
}

// execute 执行任务并捕获 panic
func (p *Pool) execute(task Task) {
	p.running.Add(1)
	defer func() {
		p.running.Add(-1)
		p.completed.Add(1)
		if r := recover(); r != nil {
			p.panics.Add(1)
			logger.L.Error("panic recovered in worker task", zap.Any("panic", r))
		}
	}()
	task.Execute()
}
