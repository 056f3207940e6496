package memory

import (
	"context"

	"github.com/artem13815/cvflow/pkg/scoring"
)

// CallStore implements scoring.Recorder.
type CallStore struct{ *Store }

func (s *Store) Calls() CallStore { return CallStore{s} }

func (s CallStore) RecordCall(ctx context.Context, c scoring.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	return nil
}

// Recorded returns a copy of every recorded call.
func (s CallStore) Recorded() []scoring.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scoring.Call(nil), s.calls...)
}
