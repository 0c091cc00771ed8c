// Package graph wraps the graph database that index snapshots are exported to.
package graph

import (
	"context"
	"errors"
)

// Client runs the Cypher statements that mirror the index into a graph
// database. Writes carry one export batch each.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is what one statement returned, such as the export counts read back
// after a batch.
type Result struct {
	Records []Record
}

// Record is one returned row keyed by column alias.
type Record map[string]any

// Options points the exporter at a graph database.
type Options struct {
	// URI of the bolt endpoint, for example neo4j://localhost:7687.
	URI string

	// Database receives the exported transactions; empty selects the server default.
	Database string
	Username string
	Password string

	// MaxConnections bounds the pool shared by concurrent export batches.
	MaxConnections int
}

// ErrMissingURI is returned when no graph URI is configured, which disables export.
var ErrMissingURI = errors.New("graph URI is required")
