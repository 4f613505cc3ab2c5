package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// classify maps a transport error onto a generation error kind.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	var genErr *entities.GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &entities.GenerationError{Kind: entities.ErrGenerationTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &entities.GenerationError{Kind: entities.ErrGenerationTimeout, Err: err}
	}
	return &entities.GenerationError{Kind: entities.ErrGenerationConnection, Err: err}
}

func endpointError(format string, args ...any) error {
	return &entities.GenerationError{Kind: entities.ErrEndpoint, Err: fmt.Errorf(format, args...)}
}

// streamSender delivers tokens on ch until the caller's ctx is done.
func streamSender(ctx context.Context, ch chan<- ports.StreamToken) func(ports.StreamToken) bool {
	return func(tok ports.StreamToken) bool {
		select {
		case ch <- tok:
			return true
		case <-ctx.Done():
			return false
		}
	}
}
