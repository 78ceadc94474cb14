package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildRootLoggerFallsBackToNop(t *testing.T) {
	logger := buildRootLogger(func() (*zap.Logger, error) {
		return nil, errors.New("no tty")
	})
	require.NotNil(t, logger)
	require.NotPanics(t, func() {
		logger.Named("main").Info("started")
	})

	dev := zap.NewExample()
	require.Same(t, dev, buildRootLogger(func() (*zap.Logger, error) { return dev, nil }))
}
