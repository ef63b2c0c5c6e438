package ports

import (
	"context"
)

// FrontEnd is a long-running listener that feeds emails into the pipeline
type FrontEnd interface {
	// Name identifies the front end in logs
	Name() string

	// Start begins serving in the background and returns once listening
	Start() error

	// Stop stops accepting work and waits for in-flight requests until ctx is done
	Stop(ctx context.Context) error
}
