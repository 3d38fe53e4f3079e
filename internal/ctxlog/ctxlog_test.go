package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))

	FromContext(ctx).Info("hello", "stage", "INIT")
	require.Contains(t, buf.String(), "stage=INIT")
}

func TestFromContextDefault(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}
