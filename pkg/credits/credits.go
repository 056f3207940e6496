package credits

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSignup Kind = "signup"
	KindDebit  Kind = "cv_debit"
	KindRefund Kind = "cv_refund"
)

// ErrDuplicate is returned by Apply when (ref, kind) was already recorded.
var (
	ErrQuotaExceeded = errors.New("insufficient credits")
	ErrDuplicate     = errors.New("credit transaction already recorded")
	ErrUnknownUser   = errors.New("user not found")
)

// Transaction is one ledger row. Amount is signed: debits are negative.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Amount    int       `json:"amount"`
	Kind      Kind      `json:"kind"`
	RefID     uuid.UUID `json:"refId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository applies a ledger row and moves the user's balance in one atomic
// step. A negative amount that would take the balance below zero fails with
// ErrQuotaExceeded and writes nothing.
type Repository interface {
	Apply(ctx context.Context, tx Transaction) (balance int, err error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Debit charges amount for ref once. charged is false when ref was already debited.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int, ref uuid.UUID) (bool, error) {
	bal, err := s.repo.Apply(ctx, newTx(userID, -amount, KindDebit, ref))
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Debug("credits debited", "user_id", userID, "amount", amount, "ref_id", ref, "balance", bal)
	return true, nil
}

// Refund returns credits for ref. Repeated refunds are no-ops.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount int, ref uuid.UUID) error {
	bal, err := s.repo.Apply(ctx, newTx(userID, amount, KindRefund, ref))
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("credits refunded", "user_id", userID, "amount", amount, "ref_id", ref, "balance", bal)
	return nil
}

// Grant seeds a new account.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, amount int) error {
	if amount <= 0 {
		return nil
	}
	_, err := s.repo.Apply(ctx, newTx(userID, amount, KindSignup, userID))
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.Balance(ctx, userID)
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.History(ctx, userID, limit)
}

func newTx(userID uuid.UUID, amount int, kind Kind, ref uuid.UUID) Transaction {
	return Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Kind:      kind,
		RefID:     ref,
		CreatedAt: time.Now().UTC(),
	}
}
