package dnd

import (
	"sync"

	"github.com/google/uuid"
	"github.com/meur/tierdeck/internal/models"
)

// Store owns the mutable template during editing. Every action builds the
// next state on a deep copy and swaps it in atomically, so readers never see
// a partially applied mutation. Subscribers are notified after each swap.
type Store struct {
	mu   sync.Mutex
	tmpl *models.TierlistTemplate
	subs []func(*models.TierlistTemplate)
}

// NewStore wraps an initial template. A nil template starts from the default
// 5-row skeleton.
func NewStore(t *models.TierlistTemplate) *Store {
	if t == nil {
		t = models.DefaultTemplate()
	}
	return &Store{tmpl: t.Clone()}
}

// Snapshot returns a deep copy of the current template.
func (s *Store) Snapshot() *models.TierlistTemplate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tmpl.Clone()
}

// Subscribe registers fn to run after every state swap. Callbacks receive a
// private copy and run on the mutating goroutine.
func (s *Store) Subscribe(fn func(*models.TierlistTemplate)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Apply runs fn against a copy of the current template and commits the
// result. Returning nil from fn aborts the transition.
func (s *Store) Apply(fn func(*models.TierlistTemplate) *models.TierlistTemplate) {
	s.mu.Lock()
	next := fn(s.tmpl.Clone())
	if next == nil {
		s.mu.Unlock()
		return
	}
	s.tmpl = next
	subs := append(([]func(*models.TierlistTemplate))(nil), s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub(next.Clone())
	}
}

// MoveImage applies one image placement step (see PerformImageDrag).
func (s *Store) MoveImage(active ImagePayload, over any) {
	s.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
		return PerformImageDrag(active, over, t)
	})
}

// MoveRow moves the row at from to index to, leaving every row's items
// untouched. Out-of-range indices are clamped.
func (s *Store) MoveRow(from, to int) {
	s.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
		t.Tierlist.Rows = arrayMove(t.Tierlist.Rows, from, to)
		return t
	})
}

// AddRow appends an empty row with an auto-generated label: "S" for the
// first row, then A, B, C… by position. Returns false once MaxRows rows
// exist.
func (s *Store) AddRow() bool {
	added := false
	s.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
		rows := t.Tierlist.Rows
		if len(rows) >= models.MaxRows {
			return nil
		}
		label := "S"
		if len(rows) > 0 {
			label = string(rune('A' + len(rows) - 1))
		}
		t.Tierlist.Rows = append(rows, models.TierlistRow{
			ID:    uuid.New().String(),
			Label: label,
			Items: []models.TierlistImage{},
			Type:  models.ElementRow,
		})
		added = true
		return t
	})
	return added
}

// RemoveRow removes the last row. Its items move into the new last row, or
// into the reserve when no rows remain; images are never deleted. A no-op
// on an empty template.
func (s *Store) RemoveRow() {
	s.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
		rows := t.Tierlist.Rows
		if len(rows) == 0 {
			return nil
		}
		last := rows[len(rows)-1]
		rows = rows[:len(rows)-1]
		if len(rows) > 0 {
			rows[len(rows)-1].Items = append(rows[len(rows)-1].Items, last.Items...)
		} else {
			t.TierlistReserve.Items = append(t.TierlistReserve.Items, last.Items...)
		}
		t.Tierlist.Rows = rows
		return t
	})
}

// SetLabel renames a row. Out-of-range indices are ignored.
func (s *Store) SetLabel(rowIndex int, label string) {
	s.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
		if rowIndex < 0 || rowIndex >= len(t.Tierlist.Rows) {
			return nil
		}
		t.Tierlist.Rows[rowIndex].Label = label
		return t
	})
}

// SetCaption attaches caption to the image with the given id wherever it
// currently lives. A no-op when the image is not present.
func (s *Store) SetCaption(imageID string, caption models.Caption) {
	s.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
		for ri := range t.Tierlist.Rows {
			for ii := range t.Tierlist.Rows[ri].Items {
				if t.Tierlist.Rows[ri].Items[ii].ID == imageID {
					c := caption
					t.Tierlist.Rows[ri].Items[ii].Caption = &c
					return t
				}
			}
		}
		for ii := range t.TierlistReserve.Items {
			if t.TierlistReserve.Items[ii].ID == imageID {
				c := caption
				t.TierlistReserve.Items[ii].Caption = &c
				return t
			}
		}
		return nil
	})
}

// SetTitle renames the template.
func (s *Store) SetTitle(title string) {
	s.Apply(func(t *models.TierlistTemplate) *models.TierlistTemplate {
		t.TemplateTitle = title
		return t
	})
}

// arrayMove moves the element at from to index to, preserving the relative
// order of everything else. Indices are clamped into range.
func arrayMove[T any](s []T, from, to int) []T {
	if len(s) == 0 {
		return s
	}
	from = clamp(from, 0, len(s)-1)
	to = clamp(to, 0, len(s)-1)
	if from == to {
		return s
	}
	out := make([]T, 0, len(s))
	out = append(out, s[:from]...)
	out = append(out, s[from+1:]...)
	out = append(out[:to], append([]T{s[from]}, out[to:]...)...)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
