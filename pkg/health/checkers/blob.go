package checkers

import (
	"context"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// BlobChecker verifies the object store is reachable.
type BlobChecker struct {
	store Pinger
}

func NewBlobChecker(store Pinger) *BlobChecker {
	return &BlobChecker{store: store}
}

func (c *BlobChecker) Name() string { return "blob" }

func (c *BlobChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.store.Ping(ctx)
}
