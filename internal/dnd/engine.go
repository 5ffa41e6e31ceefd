package dnd

import (
	"sync"
	"time"

	"github.com/meur/tierdeck/internal/models"
)

// Event is one pointer callback. Active carries the dragged payload; Over
// carries the payload under the pointer, nil when the pointer is outside
// every drop target. IDs identify the DOM-level elements so self-hover can
// be skipped.
type Event struct {
	ActiveID string
	OverID   string
	Active   any
	Over     any
}

// Engine drives one drag gesture at a time: idle → dragging → hovering* →
// committing. Hover recomputation is throttled; everything else runs
// immediately on the calling goroutine.
type Engine struct {
	store    *Store
	throttle *Throttle

	mu             sync.Mutex
	activeElement  any
	activeRowIndex *int
}

// NewEngine creates an engine over store. maxHoverPerSecond bounds how many
// hover placements run per second; values below 1 fall back to
// DefaultHoverLimit.
func NewEngine(store *Store, maxHoverPerSecond int) *Engine {
	if maxHoverPerSecond < 1 {
		maxHoverPerSecond = DefaultHoverLimit
	}
	return &Engine{
		store:    store,
		throttle: NewThrottle(maxHoverPerSecond, time.Second),
	}
}

// Store returns the template store the engine mutates.
func (e *Engine) Store() *Store { return e.store }

// DragStart captures the dragged entity and, for images, the origin row.
func (e *Engine) DragStart(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if img, ok := AsImagePayload(ev.Active); ok {
		e.activeElement = img.Image
		e.activeRowIndex = img.RowIndex
		return
	}
	if row, ok := AsRowPayload(ev.Active); ok {
		e.activeElement = row.Row
		idx := row.RowIndex
		e.activeRowIndex = &idx
		return
	}
	e.activeElement = nil
	e.activeRowIndex = nil
}

// DragOver recomputes placement speculatively while an image is dragged
// across drop targets. Row drags are not reordered mid-gesture. Recorded
// hovers beyond the throttle budget are coalesced; the last one always
// lands.
func (e *Engine) DragOver(ev Event) {
	if ev.Over == nil || ev.ActiveID == ev.OverID {
		return
	}
	active, ok := AsImagePayload(ev.Active)
	if !ok {
		return
	}
	if _, isRow := AsRowPayload(ev.Over); isRow {
		return
	}
	over := ev.Over
	e.throttle.Call(func() {
		e.store.MoveImage(active, over)
	})
}

// DragEnd commits the gesture: row reorders apply here, and an image dropped
// outside every target is returned to the reserve. Always resets to idle.
func (e *Engine) DragEnd(ev Event) {
	defer func() {
		e.mu.Lock()
		e.activeElement = nil
		e.activeRowIndex = nil
		e.mu.Unlock()
	}()

	if ev.Over == nil {
		if active, ok := AsImagePayload(ev.Active); ok {
			e.store.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
				return dropToReserve(active, t)
			})
		}
		return
	}

	if active, ok := AsImagePayload(ev.Active); ok {
		// A drop on an image slot places immediately, bypassing the hover
		// throttle. Re-applying a placement the last hover already made is
		// harmless: removal is by id and duplicate insertion is skipped.
		if _, isRow := AsRowPayload(ev.Over); !isRow {
			e.store.MoveImage(active, ev.Over)
		}
		return
	}

	active, aok := AsRowPayload(ev.Active)
	over, ook := AsRowPayload(ev.Over)
	if aok && ook && active.RowIndex != over.RowIndex {
		e.store.MoveRow(active.RowIndex, over.RowIndex)
	}
}

// Active returns the entity being dragged and its origin row index, or nil
// when the engine is idle.
func (e *Engine) Active() (any, *int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeElement, e.activeRowIndex
}

// Stop releases the hover throttle timer.
func (e *Engine) Stop() {
	e.throttle.Stop()
}

// PerformImageDrag computes the next template state for one image placement
// step: the dragged image is removed wherever it currently lives (identity
// is the id, so the step is idempotent), then inserted according to the
// drop-target kind. Inserting an id that is already present in the
// destination is a no-op, as is an unrecognized target shape. The input
// template is mutated and returned; callers pass a private copy.
func PerformImageDrag(active ImagePayload, over any, t *models.TierlistTemplate) *models.TierlistTemplate {
	if !knownTarget(over) {
		return nil
	}
	removeActive(active, t)

	if space, ok := AsRowSpacePayload(over); ok {
		// Append to the target row's tail.
		if len(t.Tierlist.Rows) == 0 {
			return appendToReserve(active.Image, t)
		}
		idx := clamp(space.RowIndex, 0, len(t.Tierlist.Rows)-1)
		row := &t.Tierlist.Rows[idx]
		if !containsImage(row.Items, active.Image.ID) {
			row.Items = append(row.Items, active.Image)
		}
		return t
	}

	if target, ok := AsImagePayload(over); ok {
		if target.RowIndex == nil {
			// Insert before the hovered reserve image.
			items := t.TierlistReserve.Items
			if !containsImage(items, active.Image.ID) {
				at := clamp(target.ImageIndex, 0, len(items))
				items = append(items[:at], append([]models.TierlistImage{active.Image}, items[at:]...)...)
				t.TierlistReserve.Items = items
			}
			return t
		}
		// Push to the row's tail, then move into the hovered slot.
		if len(t.Tierlist.Rows) == 0 {
			return appendToReserve(active.Image, t)
		}
		idx := clamp(*target.RowIndex, 0, len(t.Tierlist.Rows)-1)
		row := &t.Tierlist.Rows[idx]
		if !containsImage(row.Items, active.Image.ID) {
			row.Items = append(row.Items, active.Image)
			row.Items = arrayMove(row.Items, len(row.Items)-1, target.ImageIndex)
		}
		return t
	}

	// Reserve empty space.
	return appendToReserve(active.Image, t)
}

func appendToReserve(img models.TierlistImage, t *models.TierlistTemplate) *models.TierlistTemplate {
	if !containsImage(t.TierlistReserve.Items, img.ID) {
		t.TierlistReserve.Items = append(t.TierlistReserve.Items, img)
	}
	return t
}

// knownTarget reports whether over has one of the recognized drop-target
// shapes. Anything else makes the whole placement a no-op, so a malformed
// payload can never drop an image on the floor.
func knownTarget(over any) bool {
	if _, ok := AsRowSpacePayload(over); ok {
		return true
	}
	if _, ok := AsImagePayload(over); ok {
		return true
	}
	_, ok := AsReserveSpacePayload(over)
	return ok
}

// dropToReserve handles a drop with no target: an image dragged out of a row
// is appended to the reserve. Images dragged from the reserve stay put.
func dropToReserve(active ImagePayload, t *models.TierlistTemplate) *models.TierlistTemplate {
	if active.RowIndex == nil {
		return nil
	}
	idx := *active.RowIndex
	if idx < 0 || idx >= len(t.Tierlist.Rows) {
		return nil
	}
	row := &t.Tierlist.Rows[idx]
	row.Items = removeID(row.Items, active.Image.ID)
	if !containsImage(t.TierlistReserve.Items, active.Image.ID) {
		t.TierlistReserve.Items = append(t.TierlistReserve.Items, active.Image)
	}
	return t
}

// removeActive removes the dragged image from whichever container holds it.
// The no-dup invariant means at most one container does; filtering by id
// instead of index keeps a re-applied placement from removing a bystander.
func removeActive(active ImagePayload, t *models.TierlistTemplate) {
	for i := range t.Tierlist.Rows {
		t.Tierlist.Rows[i].Items = removeID(t.Tierlist.Rows[i].Items, active.Image.ID)
	}
	t.TierlistReserve.Items = removeID(t.TierlistReserve.Items, active.Image.ID)
}

func removeID(items []models.TierlistImage, id string) []models.TierlistImage {
	out := items[:0:0]
	for _, img := range items {
		if img.ID != id {
			out = append(out, img)
		}
	}
	return out
}

func containsImage(items []models.TierlistImage, id string) bool {
	for _, img := range items {
		if img.ID == id {
			return true
		}
	}
	return false
}
