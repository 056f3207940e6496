package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/queue"
)

// DocumentStore implements cv.Repository.
type DocumentStore struct{ *Store }

func (s *Store) Documents() DocumentStore { return DocumentStore{s} }

func (s DocumentStore) Create(ctx context.Context, d cv.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.docs {
		if other.S3Key == d.S3Key {
			return cv.ErrDuplicateKey
		}
	}
	s.docs[d.ID] = cloneDoc(d)
	return nil
}

func (s DocumentStore) Get(ctx context.Context, id uuid.UUID) (cv.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return cv.Document{}, cv.ErrNotFound
	}
	return cloneDoc(d), nil
}

func (s DocumentStore) List(ctx context.Context, f cv.Filter) ([]cv.Document, int, error) {
	f = f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []cv.Document
	for _, d := range s.docs {
		if d.Deleted() || d.JobID != f.JobID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Filename), search) {
			continue
		}
		out = append(out, cloneDoc(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	total := len(out)
	lo := min(f.Offset(), total)
	hi := min(lo+f.PageSize, total)
	return out[lo:hi], total, nil
}

func (s DocumentStore) ConfirmUpload(ctx context.Context, id uuid.UUID, t queue.Task) (cv.Document, queue.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return cv.Document{}, queue.Task{}, false, cv.ErrNotFound
	}
	if d.Deleted() {
		return cloneDoc(d), queue.Task{}, false, cv.ErrDeleted
	}
	switch d.Status {
	case cv.StatusRequested:
	case cv.StatusQueued:
		existing, ok := s.taskByCV(id)
		if !ok {
			return cloneDoc(d), queue.Task{}, false, fmt.Errorf("%w: queued cv without task", cv.ErrInvalidTransition)
		}
		return cloneDoc(d), cloneTask(existing), false, nil
	default:
		return cloneDoc(d), queue.Task{}, false, cv.ErrAlreadyProcessed
	}
	if existing, ok := s.taskByCV(id); ok {
		return cloneDoc(d), cloneTask(existing), false, nil
	}
	t.CVID = id
	s.tasks[t.ID] = cloneTask(t)
	d.Status = cv.StatusQueued
	d.UpdatedAt = t.CreatedAt
	s.docs[id] = d
	s.bumpBatch(d.JobID, 1, 0, 0)
	return cloneDoc(d), cloneTask(t), true, nil
}

func (s DocumentStore) Transition(ctx context.Context, id uuid.UUID, from []cv.Status, upd cv.Update) (cv.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return cv.Document{}, cv.ErrNotFound
	}
	if d.Deleted() {
		return cloneDoc(d), cv.ErrDeleted
	}
	if !slices.Contains(from, d.Status) {
		return cloneDoc(d), fmt.Errorf("%w: %s -> %s", cv.ErrInvalidTransition, d.Status, upd.To)
	}
	if err := cv.CheckUpdate(d, upd); err != nil {
		return cloneDoc(d), fmt.Errorf("%w: %v", cv.ErrInvalidTransition, err)
	}
	processed, failed := cv.CounterDeltas(d.Status, upd.To)
	d.Apply(upd)
	s.docs[id] = d
	s.bumpBatch(d.JobID, 0, processed, failed)
	return cloneDoc(d), nil
}

func (s DocumentStore) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) (cv.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.Deleted() {
		return cv.Document{}, cv.ErrNotFound
	}
	d.DeletedAt = &at
	d.UpdatedAt = at
	s.docs[id] = d
	return cloneDoc(d), nil
}

func (s DocumentStore) MarkDeletedByJob(ctx context.Context, jobID uuid.UUID, at time.Time) ([]cv.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cv.Document
	for id, d := range s.docs {
		if d.JobID != jobID || d.Deleted() {
			continue
		}
		ts := at
		d.DeletedAt = &ts
		d.UpdatedAt = at
		s.docs[id] = d
		out = append(out, cloneDoc(d))
	}
	return out, nil
}

func (s DocumentStore) HardDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || !cv.Purgeable(d) {
		return false, nil
	}
	if t, ok := s.taskByCV(id); ok {
		if !t.Status.Terminal() {
			return false, nil
		}
		delete(s.tasks, t.ID)
	}
	delete(s.docs, id)
	if d.Status != cv.StatusRequested {
		s.bumpBatch(d.JobID, -1, 0, 0)
	}
	return true, nil
}

func (s DocumentStore) ListPurgeable(ctx context.Context, requestedBefore time.Time, limit int) ([]cv.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cv.Document
	for _, d := range s.docs {
		stale := d.Status == cv.StatusRequested && d.CreatedAt.Before(requestedBefore)
		if !d.Deleted() && !stale {
			continue
		}
		if t, ok := s.taskByCV(d.ID); ok && !t.Status.Terminal() {
			continue
		}
		out = append(out, cloneDoc(d))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
