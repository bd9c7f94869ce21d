// Package analyzer provides the clients that send a prompt to an external
// text-analysis model and return its raw text. Clients are built once at
// start-up and injected into the review stages; nothing here is global.
package analyzer

import (
	"context"
	"fmt"
	"os"
)

// Analyzer is one independently reasoning model endpoint.
type Analyzer interface {
	// Name identifies the analyzer in provenance and logs.
	Name() string
	// Invoke sends a system context and a user prompt and returns the
	// model's text. Transport and timeout failures are returned as errors.
	Invoke(ctx context.Context, system, prompt string) (string, error)
}

// Func adapts a closure to Analyzer.
type Func struct {
	ID string
	Fn func(ctx context.Context, system, prompt string) (string, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Invoke(ctx context.Context, system, prompt string) (string, error) {
	return f.Fn(ctx, system, prompt)
}

// Static returns a canned response. Used for offline runs and fixtures.
type Static struct {
	ID       string
	Response string
}

func (s Static) Name() string { return s.ID }

func (s Static) Invoke(ctx context.Context, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Response, nil
}

// NewStaticFromFile reads the canned response from path.
func NewStaticFromFile(id, path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Static{}, fmt.Errorf("read static response for %s: %w", id, err)
	}
	return Static{ID: id, Response: string(data)}, nil
}
