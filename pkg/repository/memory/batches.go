package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/cv"
)

// BatchStore implements batch.Repository.
type BatchStore struct{ *Store }

func (s *Store) Batches() BatchStore { return BatchStore{s} }

func (s BatchStore) Create(ctx context.Context, b batch.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
	return nil
}

func (s BatchStore) Get(ctx context.Context, id uuid.UUID) (batch.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return batch.Batch{}, batch.ErrNotFound
	}
	return b, nil
}

func (s BatchStore) list(keep func(batch.Batch) bool, archived bool, limit, offset int) []batch.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []batch.Batch
	for _, b := range s.batches {
		if !b.Deleted() && b.Archived == archived && keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	lo := min(offset, len(out))
	hi := min(lo+limit, len(out))
	return out[lo:hi]
}

func (s BatchStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, archived bool, limit, offset int) ([]batch.Batch, error) {
	return s.list(func(b batch.Batch) bool { return b.OwnerID == ownerID }, archived, limit, offset), nil
}

func (s BatchStore) ListAll(ctx context.Context, archived bool, limit, offset int) ([]batch.Batch, error) {
	return s.list(func(batch.Batch) bool { return true }, archived, limit, offset), nil
}

func (s BatchStore) UpdateWeights(ctx context.Context, id uuid.UUID, w cv.Weights) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return batch.ErrNotFound
	}
	b.Weights = w
	b.UpdatedAt = time.Now().UTC()
	s.batches[id] = b
	return nil
}

func (s BatchStore) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok || b.Deleted() {
		return batch.ErrNotFound
	}
	b.Archived = archived
	b.UpdatedAt = time.Now().UTC()
	s.batches[id] = b
	return nil
}

func (s BatchStore) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok || b.Deleted() {
		return batch.ErrNotFound
	}
	b.DeletedAt = &at
	b.UpdatedAt = at
	s.batches[id] = b
	return nil
}

func (s BatchStore) ListDeleted(ctx context.Context, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id, b := range s.batches {
		if b.Deleted() {
			out = append(out, id)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s BatchStore) Purge(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok || !b.Deleted() {
		return false, nil
	}
	for _, d := range s.docs {
		if d.JobID == id {
			return false, nil
		}
	}
	delete(s.batches, id)
	return true, nil
}

func (s BatchStore) StatusCounts(ctx context.Context, id uuid.UUID) (map[cv.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[cv.Status]int)
	for _, d := range s.docs {
		if d.JobID == id && !d.Deleted() {
			counts[d.Status]++
		}
	}
	return counts, nil
}
