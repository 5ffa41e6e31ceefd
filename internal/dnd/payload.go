// Package dnd implements the drag-and-drop reconciliation engine for
// tierlist templates: pointer-gesture state, speculative image placement on
// hover, row reordering on drop, and the throttled/coalesced recomputation
// that keeps fast mouse movement from starving the event loop.
package dnd

import (
	"github.com/meur/tierdeck/internal/models"
)

// ImagePayload identifies a dragged or hovered image. RowIndex is nil when
// the image lives in the reserve.
type ImagePayload struct {
	ImageIndex int
	RowIndex   *int
	Image      models.TierlistImage
}

// RowPayload identifies a dragged or hovered row.
type RowPayload struct {
	RowIndex int
	Row      models.TierlistRow
}

// RowSpacePayload is the empty space at the end of a row.
type RowSpacePayload struct {
	RowIndex int
}

// ReserveSpacePayload is the empty space at the end of the reserve.
type ReserveSpacePayload struct{}

// The guards below validate untrusted payload shapes before any mutation.
// An unrecognized shape is reported as not-ok; the engine then no-ops. They
// accept both typed payloads and generic map payloads (events that crossed a
// JSON boundary).

// AsImagePayload reports whether data describes an image drag payload.
func AsImagePayload(data any) (ImagePayload, bool) {
	switch v := data.(type) {
	case ImagePayload:
		if v.Image.ID == "" || v.Image.Type != models.ElementImage {
			return ImagePayload{}, false
		}
		return v, true
	case *ImagePayload:
		if v == nil {
			return ImagePayload{}, false
		}
		return AsImagePayload(*v)
	case map[string]any:
		idx, ok := asInt(v["imageIndex"])
		if !ok {
			return ImagePayload{}, false
		}
		var rowIdx *int
		if raw, present := v["rowIndex"]; present && raw != nil {
			ri, ok := asInt(raw)
			if !ok {
				return ImagePayload{}, false
			}
			rowIdx = &ri
		}
		img, ok := asImage(v["elementData"])
		if !ok {
			return ImagePayload{}, false
		}
		return ImagePayload{ImageIndex: idx, RowIndex: rowIdx, Image: img}, true
	}
	return ImagePayload{}, false
}

// AsRowPayload reports whether data describes a row drag payload.
func AsRowPayload(data any) (RowPayload, bool) {
	switch v := data.(type) {
	case RowPayload:
		if v.Row.ID == "" || v.Row.Type != models.ElementRow || v.Row.Items == nil {
			return RowPayload{}, false
		}
		return v, true
	case *RowPayload:
		if v == nil {
			return RowPayload{}, false
		}
		return AsRowPayload(*v)
	case map[string]any:
		idx, ok := asInt(v["rowIndex"])
		if !ok {
			return RowPayload{}, false
		}
		elem, ok := v["elementData"].(map[string]any)
		if !ok {
			return RowPayload{}, false
		}
		id, _ := elem["id"].(string)
		label, hasLabel := elem["label"].(string)
		typ, _ := asInt(elem["type"])
		rawItems, isSlice := elem["items"].([]any)
		if id == "" || !hasLabel || models.ElementType(typ) != models.ElementRow || !isSlice {
			return RowPayload{}, false
		}
		items := make([]models.TierlistImage, 0, len(rawItems))
		for _, ri := range rawItems {
			img, ok := asImage(ri)
			if !ok {
				return RowPayload{}, false
			}
			items = append(items, img)
		}
		return RowPayload{
			RowIndex: idx,
			Row:      models.TierlistRow{ID: id, Label: label, Items: items, Type: models.ElementRow},
		}, true
	}
	return RowPayload{}, false
}

// AsRowSpacePayload reports whether data describes a row empty-space target.
func AsRowSpacePayload(data any) (RowSpacePayload, bool) {
	switch v := data.(type) {
	case RowSpacePayload:
		return v, true
	case *RowSpacePayload:
		if v == nil {
			return RowSpacePayload{}, false
		}
		return *v, true
	case map[string]any:
		idx, ok := asInt(v["rowIndex"])
		if !ok {
			return RowSpacePayload{}, false
		}
		elem, ok := v["elementData"].(map[string]any)
		if !ok {
			return RowSpacePayload{}, false
		}
		typ, _ := asInt(elem["type"])
		if id, _ := elem["id"].(string); id == "" || models.ElementType(typ) != models.ElementRowEmptySpace {
			return RowSpacePayload{}, false
		}
		return RowSpacePayload{RowIndex: idx}, true
	}
	return RowSpacePayload{}, false
}

// AsReserveSpacePayload reports whether data describes the reserve
// empty-space target.
func AsReserveSpacePayload(data any) (ReserveSpacePayload, bool) {
	switch v := data.(type) {
	case ReserveSpacePayload:
		return v, true
	case *ReserveSpacePayload:
		if v == nil {
			return ReserveSpacePayload{}, false
		}
		return *v, true
	case map[string]any:
		if _, present := v["rowIndex"]; present && v["rowIndex"] != nil {
			return ReserveSpacePayload{}, false
		}
		elem, ok := v["elementData"].(map[string]any)
		if !ok {
			return ReserveSpacePayload{}, false
		}
		typ, _ := asInt(elem["type"])
		if id, _ := elem["id"].(string); id == "" || models.ElementType(typ) != models.ElementReserveEmptySpace {
			return ReserveSpacePayload{}, false
		}
		return ReserveSpacePayload{}, true
	}
	return ReserveSpacePayload{}, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asImage(v any) (models.TierlistImage, bool) {
	switch img := v.(type) {
	case models.TierlistImage:
		if img.ID == "" || img.Type != models.ElementImage {
			return models.TierlistImage{}, false
		}
		return img, true
	case map[string]any:
		id, _ := img["id"].(string)
		typ, _ := asInt(img["type"])
		if id == "" || models.ElementType(typ) != models.ElementImage {
			return models.TierlistImage{}, false
		}
		out := models.TierlistImage{ID: id, Type: models.ElementImage}
		if s, ok := img["imageUrl"].(string); ok {
			out.ImageURL = &s
		}
		if s, ok := img["proxiedImageUrl"].(string); ok {
			out.ProxiedImageURL = &s
		}
		if s, ok := img["croppedImageUrl"].(string); ok {
			out.CroppedImageURL = &s
		}
		return out, true
	}
	return models.TierlistImage{}, false
}
