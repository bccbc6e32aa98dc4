package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), base)
	ctx = With(ctx, "request_id", "req-1")
	ctx = With(ctx, "slug", "abc123")

	FromContext(ctx).Info("page updated")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "slug=abc123")
	assert.Contains(t, out, `msg="page updated"`)
}

func TestWith_NoArgs(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, With(ctx))
}
