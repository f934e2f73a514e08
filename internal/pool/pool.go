// Package pool bounds concurrent filesystem work so that slow
// operations (tree walks, content search, archive extraction) cannot
// stall unrelated requests.
package pool

import (
	"fmt"
	"runtime"

	"loft/internal/errors"

	"go.uber.org/zap"
)

type Pool struct {
	sem    chan struct{}
	logger *zap.Logger
}

// New creates a pool with the given number of slots. size <= 0 means
// one slot per available CPU.
func New(size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		sem:    make(chan struct{}, size),
		logger: logger,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return cap(p.sem)
}

// Do runs fn on the calling goroutine once a slot is free. Tasks run to
// completion and are not cancellable once dispatched. A panic inside fn
// is recovered, logged, and surfaced as an internal error instead of
// crashing the process.
func (p *Pool) Do(fn func() error) (err error) {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
			err = errors.Internal(fmt.Sprintf("task panicked: %v", r))
		}
	}()

	return fn()
}
