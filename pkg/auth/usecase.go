package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// AuthUseCase describes authentication/registration behavior.
type AuthUseCase interface {
	Register(ctx context.Context, email, password string) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
	Me(ctx context.Context, id uuid.UUID) (User, error)
}

type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type authService struct {
	repo          UserRepository
	tokens        TokenGenerator
	credits       CreditGranter
	signupCredits int
}

// NewAuthService returns default implementation of AuthUseCase.
// credits may be nil, in which case new accounts start empty.
func NewAuthService(repo UserRepository, tokens TokenGenerator, credits CreditGranter, signupCredits int) AuthUseCase {
	return &authService{repo: repo, tokens: tokens, credits: credits, signupCredits: signupCredits}
}

func (s *authService) Register(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || len(password) < minPasswordLen {
		return AuthResult{}, ErrInvalidCredentials
	}

	// If user exists, fail fast (best-effort check)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, ErrUserAlreadyExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	user := User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}
	if s.credits != nil && s.signupCredits > 0 {
		if err := s.credits.Grant(ctx, user.ID, s.signupCredits); err != nil {
			return AuthResult{}, err
		}
		user.Credits = s.signupCredits
	}
	token, err := s.tokens.Generate(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Generate(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token}, nil
}

func (s *authService) Me(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetByID(ctx, id)
}
