package glow

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/glowkit/glow-go/pkg/intercept"
	"github.com/glowkit/glow-go/pkg/metrics"
	"github.com/glowkit/glow-go/pkg/registry"
)

// OnObserverConnected attaches the interceptor to a new observer
// connection. It must be called before the host sends the observer any
// entity, so the engine learns which entities the observer sees.
func (e *Engine) OnObserverConnected(conn Conn) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()

	id := conn.ID()
	e.obsMu.Lock()
	defer e.obsMu.Unlock()

	if _, ok := e.observers[id]; ok {
		return fmt.Errorf("observer %s: %w", id, intercept.ErrAlreadyAttached)
	}
	h, err := intercept.Attach(conn, intercept.Deps{
		Capability: e.cap,
		Highlights: e.entities,
		Logger:     e.logger,
		Capture:    e.capture,
		Metrics:    e.metrics,
	})
	if err != nil {
		return fmt.Errorf("observer %s: %w", id, err)
	}
	e.observers[id] = &observer{id: id, conn: conn, handle: h}

	e.debugLog("observer connected", "observer", id)
	return nil
}

// OnObserverDisconnected forgets a closed observer connection: the
// interceptor is detached and every highlight and team of the observer is
// dropped without sending anything. When it returns no state for the
// observer remains.
func (e *Engine) OnObserverDisconnected(id ObserverID) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()

	e.obsMu.Lock()
	o := e.observers[id]
	delete(e.observers, id)
	e.obsMu.Unlock()
	if o == nil {
		return fmt.Errorf("%w: %s", ErrUnknownObserver, id)
	}

	if err := e.sweep(o, false); err != nil {
		return err
	}
	e.debugLog("observer disconnected", "observer", id)
	return nil
}

// OnEntityRemoved drops every observer's highlight of an entity that left
// the world, releasing the teams it held on live observers. Failures are
// returned joined; every entry is removed regardless.
func (e *Engine) OnEntityRemoved(entityID int32) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()

	var errs []error
	observers := e.entities.Observers(entityID)
	for _, id := range slices.SortedFunc(maps.Keys(observers), compareObservers) {
		if err := e.removeEntityFor(entityID, id); err != nil {
			errs = append(errs, fmt.Errorf("entity %d observer %s: %w", entityID, id, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) removeEntityFor(entityID int32, id ObserverID) error {
	o, done, err := e.observer(id)
	if err != nil {
		// Disconnect cleanup owns the entry.
		return nil
	}
	defer done()

	unlock := e.entityLocks.Lock(registry.Key[int32]{Object: entityID, Observer: id})
	defer unlock()

	h, had := e.entities.Delete(entityID, id)
	if !had {
		return nil
	}
	e.metrics.AddHighlights(metrics.KindEntity, -1)
	if h.Color == nil {
		return nil
	}
	return e.uncolor(o, h)
}

// Observers returns the connected observers.
func (e *Engine) Observers() []ObserverID {
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()
	return slices.SortedFunc(maps.Keys(e.observers), compareObservers)
}
