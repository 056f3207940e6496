// Package memory is an in-process implementation of every repository port.
// It backs STORAGE_DRIVER=memory and the package tests; all state sits behind one mutex
// so each method is atomic the same way a single SQL statement or transaction is.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/auth"
	"github.com/artem13815/cvflow/pkg/batch"
	"github.com/artem13815/cvflow/pkg/credits"
	"github.com/artem13815/cvflow/pkg/cv"
	"github.com/artem13815/cvflow/pkg/queue"
	"github.com/artem13815/cvflow/pkg/scoring"
)

type Store struct {
	mu sync.Mutex

	users   map[uuid.UUID]auth.User
	ledger  []credits.Transaction
	batches map[uuid.UUID]batch.Batch
	docs    map[uuid.UUID]cv.Document
	tasks   map[uuid.UUID]queue.Task
	calls   []scoring.Call
}

func New() *Store {
	return &Store{
		users:   make(map[uuid.UUID]auth.User),
		batches: make(map[uuid.UUID]batch.Batch),
		docs:    make(map[uuid.UUID]cv.Document),
		tasks:   make(map[uuid.UUID]queue.Task),
	}
}

func (s *Store) bumpBatch(jobID uuid.UUID, total, processed, failed int) {
	b, ok := s.batches[jobID]
	if !ok {
		return
	}
	b.TotalCVs += total
	b.ProcessedCVs += processed
	b.FailedCVs += failed
	s.batches[jobID] = b
}

func (s *Store) taskByCV(cvID uuid.UUID) (queue.Task, bool) {
	for _, t := range s.tasks {
		if t.CVID == cvID {
			return t, true
		}
	}
	return queue.Task{}, false
}

func cloneDoc(d cv.Document) cv.Document {
	if d.Match != nil {
		m := *d.Match
		m.MatchedSkills = append([]string(nil), m.MatchedSkills...)
		m.MissingSkills = append([]string(nil), m.MissingSkills...)
		d.Match = &m
	}
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		d.DeletedAt = &t
	}
	if d.ProcessedAt != nil {
		t := *d.ProcessedAt
		d.ProcessedAt = &t
	}
	return d
}

func cloneTask(t queue.Task) queue.Task {
	if t.LeaseExpiresAt != nil {
		l := *t.LeaseExpiresAt
		t.LeaseExpiresAt = &l
	}
	return t
}
