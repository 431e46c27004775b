package server

import (
	"context"
	"sync"
)

// HealthService runs readiness probes and reports one result per component.
type HealthService interface {
	Probe(ctx context.Context) map[string]error
}

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// Probes runs every named probe concurrently.
type Probes map[string]Probe

// Probe implements the HealthService interface.
func (p Probes) Probe(ctx context.Context) map[string]error {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]error, len(p))
	)
	for name, probe := range p {
		if probe == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := probe(ctx)
			mu.Lock()
			out[name] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
