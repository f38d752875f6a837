package service

// ExecutionSlot is a capacity-one execution token. The booking pipeline
// holds it for the whole search-book-pay-log sequence, so overlapping
// scheduled and manual attempts serialize instead of racing the duplicate
// guard and the single browser session.
type ExecutionSlot struct {
	ch chan struct{}
}

func NewExecutionSlot() *ExecutionSlot {
	s := &ExecutionSlot{ch: make(chan struct{}, 1)}
	s.ch <- struct{}{}
	return s
}

// Acquire blocks until the slot is free.
func (s *ExecutionSlot) Acquire() {
	<-s.ch
}

// TryAcquire takes the slot without blocking and reports whether it got it.
func (s *ExecutionSlot) TryAcquire() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s *ExecutionSlot) Release() {
	s.ch <- struct{}{}
}
