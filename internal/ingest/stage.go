package ingest

import (
	"context"
	"fmt"

	"websift/internal/util"
)

// BodyKey names the staged copy of a fetched page body. It is fixed per URL,
// so a later attempt overwrites the previous copy.
func BodyKey(url string) string {
	return "body-" + util.SHA256Hex(url)
}

// StageBody parks a fetched body in the blob store so background steps can
// hand it on by key instead of by value.
func (o *Orchestrator) StageBody(ctx context.Context, url, body string) (string, error) {
	key := BodyKey(url)
	if err := o.blobs.Put(ctx, key, []byte(body)); err != nil {
		return "", fmt.Errorf("stage body of %s: %w", url, err)
	}
	return key, nil
}

func (o *Orchestrator) LoadBody(ctx context.Context, key string) (string, error) {
	b, err := o.blobs.Get(ctx, key)
	if err != nil {
		return "", util.StorageError("load staged body "+key, err)
	}
	return string(b), nil
}
