package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/artem13815/cvflow/pkg/auth"
	"github.com/artem13815/cvflow/pkg/credits"
)

// UserStore implements auth.UserRepository.
type UserStore struct{ *Store }

func (s *Store) Users() UserStore { return UserStore{s} }

func (s UserStore) Create(ctx context.Context, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return auth.ErrUserAlreadyExists
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s UserStore) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (s UserStore) GetByID(ctx context.Context, id uuid.UUID) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

// LedgerStore implements credits.Repository.
type LedgerStore struct{ *Store }

func (s *Store) Ledger() LedgerStore { return LedgerStore{s} }

func (s LedgerStore) Apply(ctx context.Context, tx credits.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[tx.UserID]
	if !ok {
		return 0, credits.ErrUnknownUser
	}
	for _, prev := range s.ledger {
		if prev.RefID == tx.RefID && prev.Kind == tx.Kind {
			return u.Credits, credits.ErrDuplicate
		}
	}
	if u.Credits+tx.Amount < 0 {
		return u.Credits, credits.ErrQuotaExceeded
	}
	u.Credits += tx.Amount
	s.users[u.ID] = u
	s.ledger = append(s.ledger, tx)
	return u.Credits, nil
}

func (s LedgerStore) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, credits.ErrUnknownUser
	}
	return u.Credits, nil
}

func (s LedgerStore) History(ctx context.Context, userID uuid.UUID, limit int) ([]credits.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []credits.Transaction
	for _, tx := range s.ledger {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
