package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RegistryConfig collects dependencies for a Registry.
type RegistryConfig struct {
	Fetcher  Fetcher
	PageSize int
	IdleTTL  time.Duration
	Logger   *slog.Logger
	Metrics  *Metrics
	Clock    func() time.Time
}

// Registry keeps one Controller per session.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Controller
	cfg       RegistryConfig
	base      context.Context
	stop      context.CancelFunc
}

// NewRegistry constructs an empty registry. Loads started by the registry
// are bound to its lifetime and cancelled by Close.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	base, stop := context.WithCancel(context.Background())
	return &Registry{
		instances: make(map[string]*Controller),
		cfg:       cfg,
		base:      base,
		stop:      stop,
	}
}

// Acquire returns the session's controller, creating and mounting it on
// first use.
func (r *Registry) Acquire(sessionID string) *Controller {
	r.mu.Lock()
	ctrl, ok := r.instances[sessionID]
	if !ok {
		ctrl = NewController(r.cfg.Fetcher, Options{
			PageSize: r.cfg.PageSize,
			Logger:   r.cfg.Logger.With(slog.String("session", sessionID)),
			Metrics:  r.cfg.Metrics,
			Clock:    r.cfg.Clock,
		})
		r.instances[sessionID] = ctrl
		r.cfg.Metrics.setInstances(len(r.instances))
		ctrl.Mount(r.base)
	}
	r.mu.Unlock()

	if !ok {
		r.cfg.Logger.Debug("widget mounted", slog.String("session", sessionID))
	}
	ctrl.touch()
	return ctrl
}

// Lookup returns the session's controller without creating one.
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	ctrl, ok := r.instances[sessionID]
	r.mu.Unlock()
	if ok {
		ctrl.touch()
	}
	return ctrl, ok
}

// Release tears down the session's controller. It reports whether one existed.
func (r *Registry) Release(sessionID string) bool {
	r.mu.Lock()
	ctrl, ok := r.instances[sessionID]
	if ok {
		delete(r.instances, sessionID)
		r.cfg.Metrics.setInstances(len(r.instances))
	}
	r.mu.Unlock()
	if ok {
		ctrl.Close()
	}
	return ok
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Sweep tears down instances idle for longer than the configured TTL and
// returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	var expired []*Controller
	r.mu.Lock()
	for id, ctrl := range r.instances {
		if now.Sub(ctrl.idleSince()) > r.cfg.IdleTTL {
			expired = append(expired, ctrl)
			delete(r.instances, id)
		}
	}
	r.cfg.Metrics.setInstances(len(r.instances))
	r.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Close()
	}
	if len(expired) > 0 {
		r.cfg.Logger.Info("swept idle widgets", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps on every interval tick until ctx is done, then closes the
// registry.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	defer r.Close()
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(r.cfg.Clock())
		}
	}
}

// Close tears down every instance and cancels outstanding loads.
func (r *Registry) Close() {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]*Controller)
	r.cfg.Metrics.setInstances(0)
	r.mu.Unlock()

	r.stop()
	for _, ctrl := range instances {
		ctrl.Close()
	}
}
