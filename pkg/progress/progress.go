// Package progress broadcasts per-job processing events. Delivery is
// best-effort and at most once: clients reconcile final state with a normal read.
package progress

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const TypeCVProgress = "cv_progress"

type Event struct {
	Type     string    `json:"type"`
	CVID     uuid.UUID `json:"cv_id"`
	JobID    uuid.UUID `json:"job_id"`
	Progress int       `json:"progress"`
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
}

func NewEvent(cvID, jobID uuid.UUID, progress int, status, message string) Event {
	return Event{Type: TypeCVProgress, CVID: cvID, JobID: jobID, Progress: progress, Status: status, Message: message}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Hub fans events out to local subscribers of a job.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[*Subscription]struct{})}
}

type Subscription struct {
	C     <-chan Event
	ch    chan Event
	hub   *Hub
	jobID uuid.UUID
	once  sync.Once
}

// Subscribe registers a listener for jobID. buffer is the number of events
// kept for a slow reader before new ones are dropped.
func (h *Hub) Subscribe(jobID uuid.UUID, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, hub: h, jobID: jobID}
	h.mu.Lock()
	set, ok := h.subs[jobID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[jobID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close unregisters the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.jobID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.jobID)
			}
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Publish never blocks: a full subscriber buffer drops the event.
func (h *Hub) Publish(ctx context.Context, e Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[e.JobID] {
		select {
		case s.ch <- e:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers(jobID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}
