package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SlotClaims authorize a single PUT or GET of one object key on the local blob store.
type SlotClaims struct {
	jwt.RegisteredClaims
	Key string `json:"key"`
	Op  string `json:"op"`
}

var ErrSlotInvalid = errors.New("invalid or expired slot token")

type SlotSigner struct {
	secret []byte
}

func NewSlotSigner(secret string) *SlotSigner { return &SlotSigner{secret: []byte(secret)} }

func (s *SlotSigner) Sign(key, op string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SlotClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Key: key,
		Op:  op,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns the object key when the token is valid for op.
func (s *SlotSigner) Verify(tokenStr, op string) (string, error) {
	var claims SlotClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid || claims.Op != op || claims.Key == "" {
		return "", ErrSlotInvalid
	}
	return claims.Key, nil
}
