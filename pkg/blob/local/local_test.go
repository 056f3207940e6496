package local

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvflow/pkg/blob"
	"github.com/artem13815/cvflow/pkg/security/jwt"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "http://localhost:8080/", jwt.NewSlotSigner("s3cret"), time.Minute)
	require.NoError(t, err)
	return s
}

func TestSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key := "users/u/batches/b/cvs/1_cv.pdf"

	slot, err := s.UploadSlot(ctx, key, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "PUT", slot.Method)
	assert.Equal(t, 60, slot.ExpiresIn)
	require.True(t, strings.HasPrefix(slot.URL, "http://localhost:8080/api/v1/uploads/"))

	token := strings.TrimPrefix(slot.URL, "http://localhost:8080/api/v1/uploads/")
	got, err := s.Verify(token, OpPut)
	require.NoError(t, err)
	assert.Equal(t, key, got)
	_, err = s.Verify(token, OpGet)
	assert.Error(t, err)

	n, err := s.Put(ctx, key, bytes.NewReader([]byte("%PDF-1.4")), 1024)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)

	data, err := s.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Remove(ctx, key))
	require.NoError(t, s.Remove(ctx, key))
	_, err = s.Fetch(ctx, key)
	assert.ErrorIs(t, err, blob.ErrObjectNotFound)
}

func TestPutLimitsAndKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.Put(ctx, "a/b.pdf", bytes.NewReader(make([]byte, 11)), 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = s.Fetch(ctx, "a/b.pdf")
	assert.ErrorIs(t, err, blob.ErrObjectNotFound)

	_, err = s.Put(ctx, "../escape.pdf", bytes.NewReader([]byte("x")), 10)
	assert.ErrorIs(t, err, blob.ErrInvalidKey)
	_, err = s.UploadSlot(ctx, "/abs", "")
	assert.ErrorIs(t, err, blob.ErrInvalidKey)
}

func TestFetchLimit(t *testing.T) {
	ctx := context.Background()
	s := newStore(t).LimitFetch(10)
	_, err := s.Put(ctx, "a/big.pdf", bytes.NewReader(make([]byte, 11)), 100)
	require.NoError(t, err)
	_, err = s.Fetch(ctx, "a/big.pdf")
	assert.ErrorIs(t, err, blob.ErrTooLarge)

	_, err = s.Put(ctx, "a/ok.pdf", bytes.NewReader(make([]byte, 10)), 100)
	require.NoError(t, err)
	data, err := s.Fetch(ctx, "a/ok.pdf")
	require.NoError(t, err)
	assert.Len(t, data, 10)
}
