package graph

import (
	"context"
	"maps"
	"sync"
)

// Mode tells reads from writes in a recorded query.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// ExecutedQuery captures a cypher statement and parameters executed against the graph.
type ExecutedQuery struct {
	Mode   Mode
	Query  string
	Params map[string]any
}

// Responder scripts the answer to one query.
type Responder func(q ExecutedQuery) (Result, error)

// MemoryClient records every statement instead of talking to a database. It
// is safe for concurrent use so exporters with several workers can share it.
type MemoryClient struct {
	mu           sync.Mutex
	queries      []ExecutedQuery
	respond      Responder
	connectivity error
}

// NewMemoryClient returns a client that answers every query with an empty Result.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// RespondWith installs fn to answer subsequent queries.
func (m *MemoryClient) RespondWith(fn Responder) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
	return m
}

// WithConnectivityError forces VerifyConnectivity to return the supplied error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ModeWrite, cypher, params)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ModeRead, cypher, params)
}

func (m *MemoryClient) execute(mode Mode, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := ExecutedQuery{Mode: mode, Query: cypher, Params: maps.Clone(params)}
	m.queries = append(m.queries, q)
	if m.respond == nil {
		return Result{}, nil
	}
	return m.respond(q)
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// Queries returns a snapshot of the executed statements of the given mode.
func (m *MemoryClient) Queries(mode Mode) []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutedQuery
	for _, q := range m.queries {
		if q.Mode == mode {
			out = append(out, q)
		}
	}
	return out
}
