package app

import (
	"context"
	"sync"
)

// taskSlot runs one background task at a time. Starting a task cancels the
// previous one and waits for it to exit first.
type taskSlot struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// run starts fn and returns a channel receiving its single result.
func (s *taskSlot) run(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	tctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	result := make(chan error, 1)
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		result <- fn(tctx)
	}()
	return result
}

// stop cancels the running task, if any, and waits for it.
func (s *taskSlot) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *taskSlot) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

// wait blocks until the running task, if any, has exited.
func (s *taskSlot) wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func failed(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}
