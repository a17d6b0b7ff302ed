package coaster

import "sync"

// Signal is a counted wake primitive: Wait blocks until the count is
// positive and consumes one unit of it.
type Signal struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

func NewSignal(n int) *Signal {
	if n < 0 {
		n = 0
	}
	s := &Signal{count: n}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Signal) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.count == 0 {
		s.cond.Wait()
	}
	s.count--
}

func (s *Signal) Post() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *Signal) PostN(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.count += n
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Arm replaces the count with n. Units left over from an earlier arming
// are discarded.
func (s *Signal) Arm(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.count = n
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *Signal) Drain() {
	s.mu.Lock()
	s.count = 0
	s.mu.Unlock()
}

func (s *Signal) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
