// Package throttle paces calls to a text model so batch extraction stays
// inside the provider's request quota.
package throttle

import (
	"context"
	"fmt"

	"github.com/mikey/llm-task-extractor/internal/core"
	"golang.org/x/time/rate"
)

// Generator wraps a TextGenerator with a token bucket
type Generator struct {
	next    core.TextGenerator
	limiter *rate.Limiter
}

// New returns next paced at requestsPerMin. A non-positive rate disables pacing.
func New(next core.TextGenerator, requestsPerMin int) core.TextGenerator {
	if requestsPerMin <= 0 {
		return next
	}
	burst := requestsPerMin / 10
	if burst < 1 {
		burst = 1
	}
	return &Generator{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), burst),
	}
}

var _ core.Admitter = (*Generator)(nil)

// Name reports the wrapped model
func (g *Generator) Name() string {
	return g.next.Name()
}

// admittedKey marks a context that already holds a token from a Generator
type admittedKey struct{}

// Admit waits for a token and returns a context that lets the next Generate
// through without waiting again. Callers start their call deadline after it.
func (g *Generator) Admit(ctx context.Context) (context.Context, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return ctx, fmt.Errorf("rate limit wait for %s: %w", g.next.Name(), err)
	}
	return context.WithValue(ctx, admittedKey{}, g), nil
}

// Generate waits for a token unless ctx came from Admit, then delegates.
// A cancelled wait is returned as an error.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if admitted, _ := ctx.Value(admittedKey{}).(*Generator); admitted != g {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait for %s: %w", g.next.Name(), err)
		}
	}
	return g.next.Generate(ctx, prompt)
}

// Close closes the wrapped generator if it holds resources
func (g *Generator) Close() error {
	if closer, ok := g.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
