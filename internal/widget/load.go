package widget

import (
	"context"
	"errors"
)

var (
	// ErrLoadPending is reported by Load.Err before the fetch has resolved.
	ErrLoadPending = errors.New("widget: load pending")
	// ErrClosed reports that the widget was torn down before its load resolved.
	ErrClosed = errors.New("widget: closed")
)

// Load is the one-shot result of mounting a widget.
type Load struct {
	done chan struct{}
	err  error
}

func newLoad() *Load {
	return &Load{done: make(chan struct{})}
}

func (l *Load) resolve(err error) {
	l.err = err
	close(l.done)
}

// Done is closed once the load has resolved.
func (l *Load) Done() <-chan struct{} {
	return l.done
}

// Err returns the load outcome, or ErrLoadPending while unresolved.
func (l *Load) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return ErrLoadPending
	}
}

// Wait blocks until the load resolves or ctx is done.
func (l *Load) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
