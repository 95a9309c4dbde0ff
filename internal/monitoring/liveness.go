// Package monitoring tracks reachability of the remote analysis service.
package monitoring

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State is the cached liveness of the analysis service.
type State string

const (
	StateUnknown State = "unknown"
	StateUp      State = "up"
	StateDown    State = "down"
)

// Prober checks service health. A nil error means the service is up.
type Prober interface {
	Health(ctx context.Context) error
}

// Liveness caches the result of a single health probe until Reset is called.
type Liveness struct {
	prober Prober
	group  singleflight.Group

	mu    sync.RWMutex
	state State
	gen   uint64 // bumped by Reset; probes started earlier are not stored
}

// NewLiveness creates a cache in the unknown state.
func NewLiveness(prober Prober) *Liveness {
	return &Liveness{prober: prober, state: StateUnknown}
}

// State returns the cached state without probing.
func (l *Liveness) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Liveness) current() (State, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.gen
}

// Probe issues one health request and stores the result. Any error is down.
// A Reset during the request wins over the result.
func (l *Liveness) Probe(ctx context.Context) State {
	_, gen := l.current()
	return l.probe(ctx, gen)
}

func (l *Liveness) probe(ctx context.Context, gen uint64) State {
	log := zap.L().With(zap.String("component", "monitoring.liveness"))

	start := time.Now()
	state := StateUp
	if err := l.prober.Health(ctx); err != nil {
		state = StateDown
		log.Warn("analysis service unreachable", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	} else {
		log.Debug("analysis service up", zap.Duration("elapsed", time.Since(start)))
	}

	l.mu.Lock()
	if l.gen == gen {
		l.state = state
	} else {
		log.Debug("discarding probe result after reset", zap.String("state", string(state)))
	}
	l.mu.Unlock()
	return state
}

// Ensure returns true if the service is up, probing only when the state is
// unknown. Concurrent callers share one in-flight probe, which keeps running
// if the caller that started it gives up; a caller whose ctx ends first gets
// false without affecting the cached state.
func (l *Liveness) Ensure(ctx context.Context) bool {
	state, gen := l.current()
	if state != StateUnknown {
		return state == StateUp
	}

	probeCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		if s, g := l.current(); g == gen && s != StateUnknown {
			return s, nil
		}
		return l.probe(probeCtx, gen), nil
	})

	select {
	case res := <-ch:
		return res.Val.(State) == StateUp
	case <-ctx.Done():
		return false
	}
}

// Reset forgets the cached state so the next Ensure probes again.
func (l *Liveness) Reset() {
	l.mu.Lock()
	l.state = StateUnknown
	l.gen++
	l.mu.Unlock()
}
