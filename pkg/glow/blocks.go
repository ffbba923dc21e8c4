package glow

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/metrics"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/registry"
)

// marker is the client-only entity that outlines a highlighted block.
type marker struct {
	EntityID int32
	UUID     uuid.UUID
	Color    protocol.Color
}

// entry is the marker's team entry.
func (m marker) entry() string {
	return m.UUID.String()
}

func (e *Engine) allocMarkerID() int32 {
	return e.nextMarker.Add(-1) + 1
}

// SetBlockHighlight outlines the block at pos in color for observer only.
// Calling it again with another color recolors the outline.
func (e *Engine) SetBlockHighlight(pos BlockPos, observer ObserverID, color protocol.Color) error {
	if !color.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidColor, color)
	}
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()
	if e.blocks == nil {
		return ErrCapabilityUnavailable
	}

	o, done, err := e.observer(observer)
	if err != nil {
		return err
	}
	defer done()

	unlock := e.blockLocks.Lock(registry.Key[BlockPos]{Object: pos, Observer: observer})
	defer unlock()

	prev, had := e.markers.Get(pos, observer)
	switch {
	case had && prev.Color == color:
		return nil
	case had:
		err = e.recolorMarker(o, pos, prev, color)
	default:
		err = e.addMarker(o, pos, color)
	}
	if err != nil {
		return fmt.Errorf("set highlight of block %v for %s: %w", pos, observer, err)
	}
	e.debugLog("block highlight set", "pos", pos, "observer", observer, "color", color)
	return nil
}

func (e *Engine) addMarker(o *observer, pos BlockPos, color protocol.Color) error {
	m := marker{EntityID: e.allocMarkerID(), UUID: uuid.New(), Color: color}

	e.markers.Set(pos, o.id, m)
	if _, err := e.teams.Acquire(o.id, color, m.entry(), o.conn.Send); err != nil {
		e.markers.Delete(pos, o.id)
		return err
	}
	if err := e.spawnMarker(o, pos, m); err != nil {
		e.markers.Delete(pos, o.id)
		_, rerr := e.teams.Release(o.id, color, m.entry(), o.conn.Send)
		return errors.Join(err, rerr)
	}
	e.metrics.AddHighlights(metrics.KindBlock, 1)
	return nil
}

func (e *Engine) recolorMarker(o *observer, pos BlockPos, prev marker, color protocol.Color) error {
	next := prev
	next.Color = color
	e.markers.Set(pos, o.id, next)

	// Leave before joining: the client rejects a leave from a team the
	// entry is no longer in.
	_, rerr := e.teams.Release(o.id, prev.Color, prev.entry(), o.conn.Send)
	if _, err := e.teams.Acquire(o.id, color, next.entry(), o.conn.Send); err != nil {
		// A marker without a team would glow white; take it down instead.
		e.markers.Delete(pos, o.id)
		e.metrics.AddHighlights(metrics.KindBlock, -1)
		derr := o.conn.Send(e.blocks.RemoveEntities(prev.EntityID))
		return errors.Join(rerr, err, derr)
	}
	return rerr
}

func (e *Engine) spawnMarker(o *observer, pos BlockPos, m marker) error {
	flags := e.blocks.MarkerFlags()
	err := o.conn.Send(
		e.blocks.SpawnMarker(m.EntityID, m.UUID, pos.X, pos.Y, pos.Z),
		e.cap.EntityData(m.EntityID, flags),
	)
	if err != nil {
		return fmt.Errorf("spawn marker: %w", err)
	}
	e.capture.Log(log.Event{
		Timestamp:  time.Now(),
		ObserverID: o.id.String(),
		Direction:  log.DirectionOut,
		Layer:      log.LayerEngine,
		Category:   log.CategoryRewrite,
		Protocol:   e.cap.Version(),
		Rewrite: &log.RewriteEvent{
			EntityID: m.EntityID,
			Sent:     flags,
			Forced:   true,
		},
	})
	return nil
}

// ClearBlockHighlight removes observer's outline of the block at pos.
// Clearing a block that is not highlighted is a no-op.
func (e *Engine) ClearBlockHighlight(pos BlockPos, observer ObserverID) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()
	if e.blocks == nil {
		return ErrCapabilityUnavailable
	}

	o, done, err := e.observer(observer)
	if err != nil {
		return err
	}
	defer done()

	unlock := e.blockLocks.Lock(registry.Key[BlockPos]{Object: pos, Observer: observer})
	defer unlock()

	m, had := e.markers.Delete(pos, observer)
	if !had {
		return nil
	}
	if err := e.removeMarker(o, m); err != nil {
		return fmt.Errorf("clear highlight of block %v for %s: %w", pos, observer, err)
	}
	e.debugLog("block highlight cleared", "pos", pos, "observer", observer)
	return nil
}

func (e *Engine) removeMarker(o *observer, m marker) error {
	e.metrics.AddHighlights(metrics.KindBlock, -1)
	var errs []error
	if err := o.conn.Send(e.blocks.RemoveEntities(m.EntityID)); err != nil {
		errs = append(errs, fmt.Errorf("remove marker: %w", err))
	}
	if _, err := e.teams.Release(o.id, m.Color, m.entry(), o.conn.Send); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BlockHighlight returns the color of observer's outline of the block at
// pos, or ErrNoHighlight.
func (e *Engine) BlockHighlight(pos BlockPos, observer ObserverID) (protocol.Color, error) {
	leave, err := e.enter()
	if err != nil {
		return 0, err
	}
	defer leave()

	m, ok := e.markers.Get(pos, observer)
	if !ok {
		return 0, fmt.Errorf("%w: block %v for %s", ErrNoHighlight, pos, observer)
	}
	return m.Color, nil
}

// OnRegionSent must be called after the host has sent observer the chunk
// at (chunkX, chunkZ). The client drops entities with a chunk, so every
// marker inside it is spawned again.
func (e *Engine) OnRegionSent(observer ObserverID, chunkX, chunkZ int32) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()
	if e.blocks == nil {
		return ErrCapabilityUnavailable
	}

	o, done, err := e.observer(observer)
	if err != nil {
		return err
	}
	defer done()

	var errs []error
	markers := e.markers.ForObserver(observer)
	for _, pos := range slices.SortedFunc(maps.Keys(markers), compareBlockPos) {
		if cx, cz := pos.Chunk(); cx != chunkX || cz != chunkZ {
			continue
		}
		if err := e.respawnMarker(o, pos); err != nil {
			errs = append(errs, fmt.Errorf("block %v: %w", pos, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) respawnMarker(o *observer, pos BlockPos) error {
	unlock := e.blockLocks.Lock(registry.Key[BlockPos]{Object: pos, Observer: o.id})
	defer unlock()

	// Cleared since the snapshot.
	m, ok := e.markers.Get(pos, o.id)
	if !ok {
		return nil
	}
	return e.spawnMarker(o, pos, m)
}

// OnBlockRemoved removes every observer's outline of the block at pos.
// Failures are returned joined; every entry is removed regardless.
func (e *Engine) OnBlockRemoved(pos BlockPos) error {
	leave, err := e.enter()
	if err != nil {
		return err
	}
	defer leave()
	if e.blocks == nil {
		return ErrCapabilityUnavailable
	}

	var errs []error
	observers := e.markers.Observers(pos)
	for _, id := range slices.SortedFunc(maps.Keys(observers), compareObservers) {
		if err := e.removeBlockFor(pos, id); err != nil {
			errs = append(errs, fmt.Errorf("block %v observer %s: %w", pos, id, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) removeBlockFor(pos BlockPos, id ObserverID) error {
	o, done, err := e.observer(id)
	if err != nil {
		// Disconnect cleanup owns the entry.
		return nil
	}
	defer done()

	unlock := e.blockLocks.Lock(registry.Key[BlockPos]{Object: pos, Observer: id})
	defer unlock()

	m, had := e.markers.Delete(pos, id)
	if !had {
		return nil
	}
	return e.removeMarker(o, m)
}

func compareBlockPos(a, b BlockPos) int {
	return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y), cmp.Compare(a.Z, b.Z))
}
