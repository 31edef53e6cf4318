package testutil

import (
	"context"

	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type txMarker struct{}

// MockPostgresClient runs transactional closures inline
type MockPostgresClient struct {
	logger *logger.Logger
	// PingErr is returned by Ping
	PingErr error
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) postgres.IClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	// If we're already in a transaction, reuse it
	if _, ok := ctx.Value(types.CtxDBTransaction).(txMarker); ok {
		return fn(ctx)
	}

	return fn(context.WithValue(ctx, types.CtxDBTransaction, txMarker{}))
}

func (c *MockPostgresClient) Ping(ctx context.Context) error {
	return c.PingErr
}
