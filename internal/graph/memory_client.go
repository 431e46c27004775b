package graph

import (
	"context"
	"strings"
	"sync"
)

// MemoryClient is an in-memory Client for repository and service tests.
// Results are routed by a substring of the cypher text; statements with no
// matching route fall back to the FIFO queues and then to an empty result.
type MemoryClient struct {
	mu           sync.Mutex
	writeCalls   []ExecutedQuery
	readCalls    []ExecutedQuery
	readRoutes   []route
	writeRoutes  []route
	readQueue    []Result
	writeQueue   []Result
	err          error
	connectivity error
}

type route struct {
	match  string
	result Result
}

// ExecutedQuery captures a cypher statement and its parameters.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError makes every subsequent statement fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// OnRead answers every read whose cypher contains match with res.
func (m *MemoryClient) OnRead(match string, res Result) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readRoutes = append(m.readRoutes, route{match: match, result: res})
	return m
}

// OnWrite answers every write whose cypher contains match with res.
func (m *MemoryClient) OnWrite(match string, res Result) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeRoutes = append(m.writeRoutes, route{match: match, result: res})
	return m
}

// PushReadResult queues a result for the next unrouted read.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readQueue = append(m.readQueue, res)
}

// PushWriteResult queues a result for the next unrouted write.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeQueue = append(m.writeQueue, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.writeCalls = append(m.writeCalls, ExecutedQuery{Query: cypher, Params: cloneMap(params)})
	return answer(cypher, m.writeRoutes, &m.writeQueue), nil
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.readCalls = append(m.readCalls, ExecutedQuery{Query: cypher, Params: cloneMap(params)})
	return answer(cypher, m.readRoutes, &m.readQueue), nil
}

func answer(cypher string, routes []route, queue *[]Result) Result {
	for _, r := range routes {
		if strings.Contains(cypher, r.match) {
			return r.result
		}
	}
	if len(*queue) == 0 {
		return Result{}
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// WriteCalls returns a snapshot of executed write statements.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writeCalls...)
}

// ReadCalls returns a snapshot of executed read statements.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.readCalls...)
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
