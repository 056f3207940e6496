package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnavailable is the StorageUnavailable failure: the provider could not be reached in time.
	ErrUnavailable    = errors.New("object storage unavailable")
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
	ErrTooLarge       = errors.New("object exceeds size limit")
)

// ReadCapped reads r fully but fails with ErrTooLarge past max bytes. max <= 0 disables the cap.
func ReadCapped(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

// Slot is a time-limited URL the client uses to move bytes directly.
type Slot struct {
	URL       string `json:"url"`
	Method    string `json:"method"`
	ExpiresIn int    `json:"expiresIn"`
}

// Gateway hides the object store behind presigned slots.
type Gateway interface {
	UploadSlot(ctx context.Context, key, contentType string) (Slot, error)
	DownloadSlot(ctx context.Context, key string) (Slot, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CleanFilename keeps the base name and replaces anything unsafe for a key.
func CleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = reUnsafe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "cv"
	}
	if len(name) > 120 {
		name = name[len(name)-120:]
	}
	return name
}

// NewKey builds users/{user}/batches/{job}/cvs/{uuid}_{name}.
func NewKey(userID, jobID uuid.UUID, filename string) string {
	return fmt.Sprintf("users/%s/batches/%s/cvs/%s_%s", userID, jobID, uuid.NewString(), CleanFilename(filename))
}

// ValidateKey rejects absolute paths and traversal.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// Bounded wraps g so every call runs under a deadline. Slot issuance and
// metadata calls get timeout; Fetch moves the whole object and gets
// fetchTimeout. A deadline hit becomes ErrUnavailable.
func Bounded(g Gateway, timeout, fetchTimeout time.Duration) Gateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 2 * time.Minute
	}
	return &bounded{next: g, timeout: timeout, fetchTimeout: fetchTimeout}
}

type bounded struct {
	next         Gateway
	timeout      time.Duration
	fetchTimeout time.Duration
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (b *bounded) UploadSlot(ctx context.Context, key, contentType string) (Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	s, err := b.next.UploadSlot(ctx, key, contentType)
	return s, mapErr(err)
}

func (b *bounded) DownloadSlot(ctx context.Context, key string) (Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	s, err := b.next.DownloadSlot(ctx, key)
	return s, mapErr(err)
}

func (b *bounded) Fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()
	data, err := b.next.Fetch(ctx, key)
	return data, mapErr(err)
}

func (b *bounded) Remove(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return mapErr(b.next.Remove(ctx, key))
}

func (b *bounded) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return mapErr(b.next.Ping(ctx))
}
