package market

import (
	"sync"

	"newsflow/models"
)

// tickStack buffers raw stream frames for LIFO draining: the consumer always
// sees the freshest tick first and may never read older ones. The stack is
// capped so a burst cannot grow memory without bound; overflow drops the
// oldest entries, which the drain policy would have discarded anyway.
type tickStack struct {
	mu      sync.Mutex
	items   []models.RawMarketMessage
	cap     int
	dropped int64
}

func newTickStack(capacity int) *tickStack {
	if capacity < 1 {
		capacity = 1
	}
	return &tickStack{
		items: make([]models.RawMarketMessage, 0, capacity),
		cap:   capacity,
	}
}

func (s *tickStack) push(msg models.RawMarketMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == s.cap {
		copy(s.items, s.items[1:])
		s.items = s.items[:len(s.items)-1]
		s.dropped++
	}
	s.items = append(s.items, msg)
}

// pop removes and returns the most recently pushed frame.
func (s *tickStack) pop() (models.RawMarketMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return models.RawMarketMessage{}, false
	}
	msg := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return msg, true
}

func (s *tickStack) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *tickStack) droppedCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
