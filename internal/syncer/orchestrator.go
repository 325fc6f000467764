// Package syncer fans a devlog entry out to the configured external issue
// trackers and records the resulting references back on the entry.
package syncer

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codervisor/devlog/internal/github"
	"github.com/codervisor/devlog/models"
	"github.com/codervisor/devlog/types"
)

// maxConcurrentSyncs bounds the fan-out so a long system list does not
// open unbounded connections.
const maxConcurrentSyncs = 4

// System is one external issue tracker an entry can be synchronized with.
type System interface {
	// Name identifies the system; it keys externalReferences entries.
	Name() string

	// Create opens a new external issue for the entry.
	Create(ctx context.Context, e *models.Entry) (models.ExternalReference, error)

	// Update pushes the entry onto its existing external issue.
	Update(ctx context.Context, e *models.Entry, ref models.ExternalReference) (models.ExternalReference, error)
}

// Result is the outcome of one per-system sync. Err is nil on success.
type Result struct {
	System string
	Ref    models.ExternalReference
	Err    error
}

// Orchestrator synchronizes entries against a fixed set of systems.
type Orchestrator struct {
	systems []System
}

// New creates an orchestrator over the given systems.
func New(systems ...System) *Orchestrator {
	return &Orchestrator{systems: systems}
}

// FromConfig builds an orchestrator from the external-systems
// configuration. Unknown system kinds fail fast.
func FromConfig(cfg types.ExternalConfig) (*Orchestrator, error) {
	var systems []System
	for _, sc := range cfg.Systems {
		switch sc.Kind {
		case "github":
			sys, err := github.NewSystem(sc)
			if err != nil {
				return nil, err
			}
			systems = append(systems, sys)
		default:
			return nil, types.NewConfigError("external.systems", "unknown system kind %q", sc.Kind)
		}
	}
	return New(systems...), nil
}

// Systems returns the configured system names.
func (o *Orchestrator) Systems() []string {
	names := make([]string, 0, len(o.systems))
	for _, s := range o.systems {
		names = append(names, s.Name())
	}
	return names
}

// syncOne creates or updates the entry's issue on one system, depending on
// whether the entry already carries a reference for it. Synchronizing the
// same system again updates the existing reference instead of adding a
// duplicate.
func (o *Orchestrator) syncOne(ctx context.Context, sys System, e *models.Entry) (models.ExternalReference, error) {
	if ref, ok := e.FindReference(sys.Name()); ok {
		return sys.Update(ctx, e, ref)
	}
	return sys.Create(ctx, e)
}

// Sync synchronizes an entry with one named system and records the
// resulting reference on the entry.
func (o *Orchestrator) Sync(ctx context.Context, e *models.Entry, systemName string) (models.ExternalReference, error) {
	for _, sys := range o.systems {
		if sys.Name() != systemName {
			continue
		}
		ref, err := o.syncOne(ctx, sys, e)
		if err != nil {
			return models.ExternalReference{}, err
		}
		e.SetReference(ref)
		return ref, nil
	}
	return models.ExternalReference{}, fmt.Errorf("no external system configured with name %q", systemName)
}

// SyncAll fans the entry out to every configured system concurrently.
// Each per-system sync is independent: one system failing does not stop
// the others, and the returned results report success or failure per
// system. References from successful syncs are recorded on the entry.
// With zero configured systems SyncAll fails instead of silently
// no-op-ing.
func (o *Orchestrator) SyncAll(ctx context.Context, e *models.Entry) ([]Result, error) {
	if len(o.systems) == 0 {
		return nil, types.NewConfigError("external.systems", "no external systems configured")
	}

	results := make([]Result, len(o.systems))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSyncs)
	for i, sys := range o.systems {
		g.Go(func() error {
			ref, err := o.syncOne(gctx, sys, e)
			mu.Lock()
			defer mu.Unlock()
			results[i] = Result{System: sys.Name(), Ref: ref, Err: err}
			if err == nil {
				e.SetReference(ref)
			}
			// Per-system failures live in the result, not the group
			// error, so sibling syncs keep running.
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}
