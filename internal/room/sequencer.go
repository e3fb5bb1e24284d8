package room

import (
	"drawsyncgo/internal/drawing"
)

// Sequences are positions: an appended element gets len(history)+1, so an
// undo frees its number for the next append. Durable rows are matched on
// (room, sequence) and are upserted, which keeps a reused number consistent.
//
// The then callbacks below run while the room is locked. Anything a caller
// emits from them is ordered exactly like the history mutations, so they
// must not block and must not call back into the registry.

// Append stamps el with the next sequence, adds it to the room history and
// hands it to the mirror. then may be nil.
func (r *Registry) Append(roomID string, el drawing.Element, then func(drawing.Element)) (drawing.Element, error) {
	rm, err := r.get(roomID)
	if err != nil {
		return drawing.Element{}, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	el = el.Clone()
	el.Sequence = len(rm.elements) + 1
	rm.elements = append(rm.elements, el)
	rm.revision++
	// under rm.mu so mirror calls for one room keep history order
	r.mirror.SaveDrawing(roomID, el.Clone())
	if then != nil {
		then(el.Clone())
	}
	return el.Clone(), nil
}

// RemoveLast pops the highest sequence element. ok is false when the
// history is already empty, and then is not called. remaining is the
// history after the pop.
func (r *Registry) RemoveLast(roomID string, then func(removed drawing.Element, remaining []drawing.Element)) (removed drawing.Element, remaining []drawing.Element, ok bool, err error) {
	rm, err := r.get(roomID)
	if err != nil {
		return drawing.Element{}, nil, false, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	n := len(rm.elements)
	if n == 0 {
		return drawing.Element{}, nil, false, nil
	}
	removed = rm.elements[n-1]
	rm.elements[n-1] = drawing.Element{}
	rm.elements = rm.elements[:n-1]
	rm.revision++
	r.mirror.DeleteDrawing(roomID, removed.Sequence)
	remaining = rm.snapshotLocked()
	if then != nil {
		then(removed.Clone(), remaining)
	}
	return removed, remaining, true, nil
}

// Clear empties the history unconditionally.
func (r *Registry) Clear(roomID string, then func()) error {
	rm, err := r.get(roomID)
	if err != nil {
		return err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.elements = nil
	rm.revision++
	r.mirror.DeleteDrawings(roomID)
	if then != nil {
		then()
	}
	return nil
}

func (r *Registry) Elements(roomID string) ([]drawing.Element, error) {
	rm, err := r.get(roomID)
	if err != nil {
		return nil, err
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshotLocked(), nil
}

// View calls fn with the room history while the room is locked.
func (r *Registry) View(roomID string, fn func([]drawing.Element)) error {
	rm, err := r.get(roomID)
	if err != nil {
		return err
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	fn(rm.snapshotLocked())
	return nil
}

// WithRoom runs fn while the room is locked.
func (r *Registry) WithRoom(roomID string, fn func()) error {
	rm, err := r.get(roomID)
	if err != nil {
		return err
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	fn()
	return nil
}

// Replace installs a history loaded from the durable store, but only when
// the room has not changed since revision was observed. Otherwise the
// in-memory history is newer than the load and is kept. Either way the
// history now in the room is returned, and handed to then under the lock.
//
// Installed elements are renumbered 1..N. When the load had gaps, the
// durable rows are rewritten to match so later appends cannot collide.
func (r *Registry) Replace(roomID string, elements []drawing.Element, revision uint64, then func([]drawing.Element)) ([]drawing.Element, bool, error) {
	rm, err := r.get(roomID)
	if err != nil {
		return nil, false, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.revision != revision {
		current := rm.snapshotLocked()
		if then != nil {
			then(current)
		}
		return current, false, nil
	}

	renumbered := false
	rm.elements = make([]drawing.Element, len(elements))
	for i, el := range elements {
		el = el.Clone()
		if el.Sequence != i+1 {
			el.Sequence = i + 1
			renumbered = true
		}
		rm.elements[i] = el
	}
	rm.revision++

	if renumbered {
		r.mirror.DeleteDrawings(roomID)
		for _, el := range rm.elements {
			r.mirror.SaveDrawing(roomID, el.Clone())
		}
	}

	current := rm.snapshotLocked()
	if then != nil {
		then(current)
	}
	return current, true, nil
}
