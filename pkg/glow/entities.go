package glow

import (
	"errors"
	"fmt"

	"github.com/glowkit/glow-go/pkg/metrics"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/registry"
)

// SetHighlight makes entity glow for observer only.
//
// With a color the entity's outline takes that color on the observer's
// client. With a nil color the entity keeps whatever team color the host
// gave it there, or glows uncolored when it has none.
//
// If the observer currently sees the entity, one forced update is sent
// right away; later host updates are rewritten on their way out.
func (e *Engine) SetHighlight(entity Entity, observer ObserverID, color *protocol.Color) error {
	return e.setEntity(entity, observer, registry.Highlight{
		Enabled: true,
		Color:   color,
		Entry:   entity.TeamEntry(),
	})
}

// SuppressHighlight hides entity's glow from observer, including a glow
// the host itself set.
func (e *Engine) SuppressHighlight(entity Entity, observer ObserverID) error {
	return e.setEntity(entity, observer, registry.Highlight{Entry: entity.TeamEntry()})
}

func (e *Engine) setEntity(entity Entity, id ObserverID, next registry.Highlight) error {
	if next.Color != nil {
		if !next.Color.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidColor, *next.Color)
		}
		// The registry owns its copy; the caller may reuse its variable.
		next.Color = next.Color.Ptr()
	}
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()

	o, done, err := e.observer(id)
	if err != nil {
		return err
	}
	defer done()

	unlock := e.entityLocks.Lock(registry.Key[int32]{Object: entity.ID, Observer: id})
	defer unlock()

	// The registry is written before anything is sent so that a host
	// update racing this call is already rewritten to the new state.
	prev, had := e.entities.Set(entity.ID, id, next)
	if !had {
		e.metrics.AddHighlights(metrics.KindEntity, 1)
	}

	var errs []error
	if !had || !prev.SameColor(next) || prev.Entry != next.Entry {
		var from *registry.Highlight
		if had {
			from = &prev
		}
		if err := e.recolor(o, from, next); err != nil {
			errs = append(errs, err)
			// Keep the glow without a color the client may not have.
			next.Color = nil
			e.entities.Set(entity.ID, id, next)
		}
	}

	var from *registry.Highlight
	if had {
		from = &prev
	}
	if err := e.forceUpdate(o, entity.ID, from, &next); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("set highlight of entity %d for %s: %w", entity.ID, id, err)
	}
	e.debugLog("highlight set",
		"entity", entity.ID,
		"observer", id,
		"enabled", next.Enabled,
		"color", colorArg(next.Color))
	return nil
}

// recolor moves the entry from prev's engine team to next's on o. A failed
// join leaves the entry in no engine team.
func (e *Engine) recolor(o *observer, prev *registry.Highlight, next registry.Highlight) error {
	var errs []error

	// Mark first: a host join arriving meanwhile must be followed by a
	// join to the new team, not the old one.
	if next.Color != nil {
		o.handle.MarkColored(next.Entry, *next.Color)
	}

	if prev != nil && prev.Color != nil {
		if _, err := e.teams.Release(o.id, *prev.Color, prev.Entry, o.conn.Send); err != nil {
			errs = append(errs, err)
		}
		if next.Color == nil || prev.Entry != next.Entry {
			o.handle.UnmarkColored(prev.Entry)
			if err := e.restoreHostTeam(o, prev.Entry); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if next.Color != nil {
		if _, err := e.teams.Acquire(o.id, *next.Color, next.Entry, o.conn.Send); err != nil {
			o.handle.UnmarkColored(next.Entry)
			errs = append(errs, err)
			if err := e.restoreHostTeam(o, next.Entry); err != nil {
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		}
	}
	return errors.Join(errs...)
}

// ClearHighlight removes observer's highlight of the entity and shows the
// host's own flags again. Clearing an entity that is not highlighted is a
// no-op.
func (e *Engine) ClearHighlight(entityID int32, observer ObserverID) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()

	o, done, err := e.observer(observer)
	if err != nil {
		return err
	}
	defer done()

	unlock := e.entityLocks.Lock(registry.Key[int32]{Object: entityID, Observer: observer})
	defer unlock()

	prev, had := e.entities.Delete(entityID, observer)
	if !had {
		return nil
	}
	e.metrics.AddHighlights(metrics.KindEntity, -1)

	var errs []error
	if prev.Color != nil {
		if err := e.uncolor(o, prev); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.forceUpdate(o, entityID, &prev, nil); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear highlight of entity %d for %s: %w", entityID, observer, err)
	}
	e.debugLog("highlight cleared", "entity", entityID, "observer", observer)
	return nil
}

// Highlight returns observer's highlight of the entity, or ErrNoHighlight.
func (e *Engine) Highlight(entityID int32, observer ObserverID) (registry.Highlight, error) {
	leave, err := e.enter()
	if err != nil {
		return registry.Highlight{}, err
	}
	defer leave()

	h, ok := e.entities.Get(entityID, observer)
	if !ok {
		return registry.Highlight{}, fmt.Errorf("%w: entity %d for %s", ErrNoHighlight, entityID, observer)
	}
	if h.Color != nil {
		h.Color = h.Color.Ptr()
	}
	return h, nil
}

// Highlights returns every entity highlight of observer, keyed by entity ID.
func (e *Engine) Highlights(observer ObserverID) (map[int32]registry.Highlight, error) {
	leave, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer leave()

	out := e.entities.ForObserver(observer)
	for id, h := range out {
		if h.Color != nil {
			h.Color = h.Color.Ptr()
			out[id] = h
		}
	}
	return out, nil
}

func colorArg(c *protocol.Color) string {
	if c == nil {
		return "none"
	}
	return c.String()
}
