// Package local is a disk-backed blob store for development. Slot URLs point
// back at this service and carry a signed token naming the key and operation.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artem13815/cvflow/pkg/blob"
)

const (
	OpPut = "put"
	OpGet = "get"
)

// Signer issues and verifies slot tokens.
type Signer interface {
	Sign(key, op string, ttl time.Duration) (string, error)
	Verify(token, op string) (string, error)
}

type Store struct {
	dir      string
	baseURL  string
	signer   Signer
	ttl      time.Duration
	maxBytes int64
}

func New(dir, publicBaseURL string, signer Signer, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/"), signer: signer, ttl: ttl}, nil
}

// LimitFetch makes Fetch refuse objects larger than n bytes.
func (s *Store) LimitFetch(n int64) *Store {
	s.maxBytes = n
	return s
}

func (s *Store) path(key string) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

func (s *Store) slot(key, op, method string) (blob.Slot, error) {
	if _, err := s.path(key); err != nil {
		return blob.Slot{}, err
	}
	token, err := s.signer.Sign(key, op, s.ttl)
	if err != nil {
		return blob.Slot{}, err
	}
	return blob.Slot{
		URL:       s.baseURL + "/api/v1/uploads/" + token,
		Method:    method,
		ExpiresIn: int(s.ttl.Seconds()),
	}, nil
}

func (s *Store) UploadSlot(ctx context.Context, key, contentType string) (blob.Slot, error) {
	return s.slot(key, OpPut, http.MethodPut)
}

func (s *Store) DownloadSlot(ctx context.Context, key string) (blob.Slot, error) {
	return s.slot(key, OpGet, http.MethodGet)
}

// Verify resolves a slot token into the key it authorizes.
func (s *Store) Verify(token, op string) (string, error) {
	return s.signer.Verify(token, op)
}

// Put stores at most limit bytes from r under key. Larger bodies are rejected.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, limit int64) (int64, error) {
	p, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", blob.ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", blob.ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())
	n, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", blob.ErrUnavailable, err)
	}
	if n > limit {
		return 0, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return 0, fmt.Errorf("%w: %v", blob.ErrUnavailable, err)
	}
	return n, nil
}

var ErrTooLarge = blob.ErrTooLarge

func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, blob.ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if s.maxBytes > 0 {
		if st, err := f.Stat(); err == nil && st.Size() > s.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", blob.ErrTooLarge, st.Size())
		}
	}
	return blob.ReadCapped(f, s.maxBytes)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("%w: %v", blob.ErrUnavailable, err)
	}
	return nil
}
