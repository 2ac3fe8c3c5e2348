package logcontext

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendCtx_DoesNotMutateParent(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("runId", "a"))
	child := AppendCtx(parent, slog.String("paymentId", "p"))

	assert.Len(t, Attrs(parent), 1)
	assert.Len(t, Attrs(child), 2)
	assert.Equal(t, "paymentId", Attrs(child)[1].Key)
}

func TestAttrs_Empty(t *testing.T) {
	assert.Nil(t, Attrs(context.Background()))
}
