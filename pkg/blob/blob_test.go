package blob

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	user, job := uuid.New(), uuid.New()
	key := NewKey(user, job, `C:\Users\me\My CV (final).pdf`)
	assert.True(t, strings.HasPrefix(key, "users/"+user.String()+"/batches/"+job.String()+"/cvs/"))
	assert.True(t, strings.HasSuffix(key, "_My_CV_final_.pdf"), key)
	assert.NoError(t, ValidateKey(key))
	assert.NotEqual(t, key, NewKey(user, job, `C:\Users\me\My CV (final).pdf`))
}

func TestValidateKey(t *testing.T) {
	for _, bad := range []string{"", "/etc/passwd", "users/../../etc", "a//b", `a\b`, "."} {
		assert.ErrorIs(t, ValidateKey(bad), ErrInvalidKey, bad)
	}
}

type slowGateway struct{}

func (slowGateway) UploadSlot(ctx context.Context, key, contentType string) (Slot, error) {
	<-ctx.Done()
	return Slot{}, ctx.Err()
}
func (slowGateway) DownloadSlot(ctx context.Context, key string) (Slot, error) { return Slot{}, nil }
func (slowGateway) Fetch(ctx context.Context, key string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowGateway) Remove(ctx context.Context, key string) error { return ErrObjectNotFound }
func (slowGateway) Ping(ctx context.Context) error               { return nil }

func TestBoundedMapsTimeout(t *testing.T) {
	g := Bounded(slowGateway{}, 10*time.Millisecond, 20*time.Millisecond)
	_, err := g.UploadSlot(context.Background(), "k", "application/pdf")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = g.Fetch(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, g.Remove(context.Background(), "k"), ErrObjectNotFound)
}

// slowFetch answers after delay, like a large object on a slow link.
type slowFetch struct {
	slowGateway
	delay time.Duration
}

func (s slowFetch) Fetch(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-time.After(s.delay):
		return []byte("cv"), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestBoundedFetchHasItsOwnDeadline(t *testing.T) {
	g := Bounded(slowFetch{delay: 30 * time.Millisecond}, 10*time.Millisecond, time.Second)
	data, err := g.Fetch(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("cv"), data)

	_, err = g.UploadSlot(context.Background(), "k", "application/pdf")
	assert.ErrorIs(t, err, ErrUnavailable, "slot issuance keeps the short bound")
}

func TestReadCapped(t *testing.T) {
	data, err := ReadCapped(bytes.NewReader(make([]byte, 16)), 16)
	require.NoError(t, err)
	assert.Len(t, data, 16)

	_, err = ReadCapped(bytes.NewReader(make([]byte, 17)), 16)
	assert.ErrorIs(t, err, ErrTooLarge)

	data, err = ReadCapped(strings.NewReader("no cap"), 0)
	require.NoError(t, err)
	assert.Equal(t, "no cap", string(data))
}
