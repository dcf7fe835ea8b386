// Package safe_close coordinates graceful shutdown of long running goroutines
package safe_close

import (
	"sync"
)

// SafeClose 关闭协调器
// Attach 的函数收到关闭信号后必须调用 done
type SafeClose struct {
	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup

	mu  sync.Mutex
	err error
}

func NewSafeClose() *SafeClose {
	return &SafeClose{closeCh: make(chan struct{})}
}

// Attach runs fn in its own goroutine, fn must call done before returning
// Attach 在独立协程中运行 fn，fn 返回前必须调用 done
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var once sync.Once
	go fn(func() { once.Do(s.wg.Done) }, s.closeCh)
}

// SendCloseSignal broadcasts the close signal once, the first non-nil err is kept
// SendCloseSignal 广播关闭信号（只生效一次），保留第一个非空错误
func (s *SafeClose) SendCloseSignal(err error) {
	s.mu.Lock()
	if s.err == nil && err != nil {
		s.err = err
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closeCh) })
}

// WaitClosed blocks until every attached goroutine has called done
// WaitClosed 阻塞直到所有 Attach 的协程都调用了 done
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Closed reports whether the close signal has been sent
func (s *SafeClose) Closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}
