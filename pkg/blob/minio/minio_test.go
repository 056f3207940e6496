package minio

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/cvflow/pkg/blob"
)

// Presigning is computed locally, no server is contacted.
func TestPresignedSlots(t *testing.T) {
	g, err := New(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "cvflow-uploads",
		Region:    "us-east-1",
		URLTTL:    15 * time.Minute,
	})
	require.NoError(t, err)

	slot, err := g.UploadSlot(context.Background(), "users/u/batches/b/cvs/1_cv.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, slot.Method)
	assert.Equal(t, 900, slot.ExpiresIn)
	assert.True(t, strings.HasPrefix(slot.URL, "http://localhost:9000/cvflow-uploads/users/u/batches/b/cvs/1_cv.pdf?"), slot.URL)
	assert.Contains(t, slot.URL, "X-Amz-Signature=")

	slot, err = g.DownloadSlot(context.Background(), "users/u/batches/b/cvs/1_cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, slot.Method)

	_, err = g.UploadSlot(context.Background(), "../x", "")
	assert.ErrorIs(t, err, blob.ErrInvalidKey)
}

// objectServer answers every GET with body, the way S3 serves GetObject.
func objectServer(t *testing.T, body []byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestFetchRefusesOversizedObject(t *testing.T) {
	endpoint := objectServer(t, bytes.Repeat([]byte("x"), 64))
	cfg := Config{Endpoint: endpoint, AccessKey: "minio", SecretKey: "minio123", Bucket: "cvflow-uploads", Region: "us-east-1"}

	cfg.MaxBytes = 16
	g, err := New(cfg)
	require.NoError(t, err)
	_, err = g.Fetch(context.Background(), "users/u/batches/b/cvs/1_cv.pdf")
	assert.ErrorIs(t, err, blob.ErrTooLarge)

	cfg.MaxBytes = 128
	g, err = New(cfg)
	require.NoError(t, err)
	data, err := g.Fetch(context.Background(), "users/u/batches/b/cvs/1_cv.pdf")
	require.NoError(t, err)
	assert.Len(t, data, 64)
}
