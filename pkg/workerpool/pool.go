// Package workerpool 提供有界的 Worker Pool，限制同时执行的重量级操作
// 备份创建、恢复与演练都会读写整个集合，通过 Pool 控制并发与排队长度
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// 错误定义
var (
	// ErrWorkerPoolFull 当任务队列已满时返回
	ErrWorkerPoolFull = errors.New("worker pool queue is full")
	// ErrWorkerPoolClosed 当 Worker Pool 已关闭时返回
	ErrWorkerPoolClosed = errors.New("worker pool is closed")
	// ErrTaskCancelled 当任务在开始前被取消时返回
	ErrTaskCancelled = errors.New("task was cancelled")
)

var (
	activeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fast_backup",
		Subsystem: "workerpool",
		Name:      "active",
		Help:      "Operations currently executing.",
	}, []string{"pool"})

	queuedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fast_backup",
		Subsystem: "workerpool",
		Name:      "queued",
		Help:      "Operations waiting for a worker.",
	}, []string{"pool"})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fast_backup",
		Subsystem: "workerpool",
		Name:      "rejected_total",
		Help:      "Operations rejected because the queue was full.",
	}, []string{"pool"})
)

// Config Worker Pool 配置
type Config struct {
	// Name 指标标签
	Name string
	// MaxWorkers 最大并发 worker 数量，默认 2
	MaxWorkers int
	// QueueSize 任务队列大小，默认 16
	QueueSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Name:       "heavy",
		MaxWorkers: 2,
		QueueSize:  16,
	}
}

type taskWrapper struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool 固定数量 worker 的任务池
type Pool struct {
	config Config
	logger *zap.Logger

	taskCh   chan taskWrapper
	workerWg sync.WaitGroup

	activeCount atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// New 创建新的 Worker Pool
// cfg: 配置，如果为 nil 则使用默认配置
// logger: zap 日志器，如果为 nil 则使用 nop logger
func New(cfg *Config, logger *zap.Logger) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.Name != "" {
			c.Name = cfg.Name
		}
		if cfg.MaxWorkers > 0 {
			c.MaxWorkers = cfg.MaxWorkers
		}
		if cfg.QueueSize > 0 {
			c.QueueSize = cfg.QueueSize
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		config: c,
		logger: logger,
		taskCh: make(chan taskWrapper, c.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < c.MaxWorkers; i++ {
		p.workerWg.Add(1)
		go p.worker()
	}

	p.logger.Info("worker pool started",
		zap.String("pool", c.Name),
		zap.Int("maxWorkers", c.MaxWorkers),
		zap.Int("queueSize", c.QueueSize))

	return p
}

func (p *Pool) worker() {
	defer p.workerWg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskCh:
			if !ok {
				return
			}
			queuedGauge.WithLabelValues(p.config.Name).Set(float64(len(p.taskCh)))
			p.executeTask(task)
		}
	}
}

func (p *Pool) executeTask(task taskWrapper) {
	p.activeCount.Add(1)
	activeGauge.WithLabelValues(p.config.Name).Inc()
	defer func() {
		p.activeCount.Add(-1)
		activeGauge.WithLabelValues(p.config.Name).Dec()
	}()

	var err error
	if task.ctx.Err() != nil {
		// 排队期间调用方已放弃
		err = ErrTaskCancelled
	} else {
		err = p.run(task)
	}

	if task.done != nil {
		task.done <- err
	}
}

// run 执行任务，panic 转为错误返回给调用方
func (p *Pool) run(task taskWrapper) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker pool task panic",
				zap.String("pool", p.config.Name),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task.fn(task.ctx)
}

// Submit 提交任务并等待完成
// 队列已满时立即返回 ErrWorkerPoolFull，不阻塞调用方
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) error {
	done := make(chan error, 1)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrWorkerPoolClosed
	}
	select {
	case p.taskCh <- taskWrapper{ctx: ctx, fn: fn, done: done}:
		queuedGauge.WithLabelValues(p.config.Name).Set(float64(len(p.taskCh)))
	default:
		p.mu.RUnlock()
		rejectedTotal.WithLabelValues(p.config.Name).Inc()
		return ErrWorkerPoolFull
	}
	p.mu.RUnlock()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrWorkerPoolClosed
	}
}

// ActiveCount 返回当前活跃任务数
func (p *Pool) ActiveCount() int64 {
	return p.activeCount.Load()
}

// QueuedCount 返回当前队列中等待的任务数
func (p *Pool) QueuedCount() int {
	return len(p.taskCh)
}

// IsClosed 返回 Worker Pool 是否已关闭
func (p *Pool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Shutdown 关闭 Worker Pool，排队中的任务仍会执行完
// ctx 到期后取消剩余 worker
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.taskCh)
	p.mu.Unlock()

	p.logger.Info("worker pool shutting down",
		zap.String("pool", p.config.Name),
		zap.Int64("activeCount", p.activeCount.Load()),
		zap.Int("queuedCount", len(p.taskCh)))

	done := make(chan struct{})
	go func() {
		p.workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool shutdown completed", zap.String("pool", p.config.Name))
		return nil
	case <-ctx.Done():
		p.cancel()
		p.logger.Warn("worker pool shutdown timeout, forcing cancellation", zap.String("pool", p.config.Name))
		return ctx.Err()
	}
}

// Metrics Worker Pool 指标
type Metrics struct {
	Name          string `json:"name"`
	MaxWorkers    int    `json:"maxWorkers"`
	ActiveCount   int64  `json:"activeCount"`
	QueuedCount   int    `json:"queuedCount"`
	QueueCapacity int    `json:"queueCapacity"`
	IsClosed      bool   `json:"isClosed"`
}

// GetMetrics 获取当前指标
func (p *Pool) GetMetrics() Metrics {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	return Metrics{
		Name:          p.config.Name,
		MaxWorkers:    p.config.MaxWorkers,
		ActiveCount:   p.activeCount.Load(),
		QueuedCount:   len(p.taskCh),
		QueueCapacity: p.config.QueueSize,
		IsClosed:      closed,
	}
}
