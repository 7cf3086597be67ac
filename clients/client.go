package clients

import (
	"context"

	"github.com/vitwit/circular/types"
)

// Querier performs one gateway operation
type Querier interface {
	Query(ctx context.Context, op types.Operation, fields map[string]any) (*types.GatewayResponse, error)
}

// Client is the full gateway surface used by the facade
type Client interface {
	Querier
	Submit(ctx context.Context, tx *types.Transaction) (*types.GatewayResponse, error)
	BaseURL() string
	Close()
}
