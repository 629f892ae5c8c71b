package guidance

import (
	"context"
	"sync"
)

// Service computes hints in the background so a UI never blocks on an LLM
// call. Only the newest request is kept; older results are discarded.
type Service struct {
	hinter Hinter

	mu      sync.Mutex
	seq     uint64
	pending *Hint
	ready   bool
}

func NewService(h Hinter) *Service {
	if h == nil {
		h = RuleHinter{}
	}
	return &Service{hinter: h}
}

// Request starts hint generation for v.
func (s *Service) Request(ctx context.Context, v View) {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.mu.Unlock()

	go func() {
		hint, err := s.hinter.Hint(ctx, v)
		if err != nil {
			hint = ruleHint(v)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if id != s.seq {
			return
		}
		s.pending = &hint
		s.ready = true
	}()
}

// Consume returns the latest finished hint once.
func (s *Service) Consume() (Hint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return Hint{}, false
	}
	h := *s.pending
	s.pending = nil
	s.ready = false
	return h, true
}

// Hint computes a hint synchronously.
func (s *Service) Hint(ctx context.Context, v View) Hint {
	h, err := s.hinter.Hint(ctx, v)
	if err != nil {
		return ruleHint(v)
	}
	return h
}
