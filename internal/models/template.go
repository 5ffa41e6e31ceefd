package models

import (
	"github.com/google/uuid"
)

// MaxRows is the hard cap on tier rows per template.
const MaxRows = 18

// MaxUploadedImages is the per-user cap on stored images.
const MaxUploadedImages = 50

// ElementType discriminates drag-and-drop element payloads. The numeric
// values are part of the wire format and must stay stable.
type ElementType int

const (
	ElementRow ElementType = iota
	ElementReserve
	ElementImage
	ElementRowEmptySpace
	ElementReserveEmptySpace
)

// PixelCrop is a crop rectangle in source-image display-pixel space.
type PixelCrop struct {
	Width         float64  `json:"width"`
	Height        float64  `json:"height"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	DisplayWidth  *float64 `json:"displayWidth,omitempty"`
	DisplayHeight *float64 `json:"displayHeight,omitempty"`
}

// Caption is the text overlay attached to an image. Scale and position are
// percentages; bounds are enforced by the editing UI, not here.
type Caption struct {
	TopText         *string `json:"topText,omitempty"`
	TopTextScale    float64 `json:"topTextScale"`
	TopTextYPos     float64 `json:"topTextYPos"`
	BottomText      *string `json:"bottomText,omitempty"`
	BottomTextScale float64 `json:"bottomTextScale"`
	BottomTextYPos  float64 `json:"bottomTextYPos"`
}

// TierlistImage is a rankable image. Identity is ID; an image lives in
// exactly one container (a row's items or the reserve) at any time.
type TierlistImage struct {
	ID              string     `json:"id"`
	ImageURL        *string    `json:"imageUrl,omitempty"`
	ProxiedImageURL *string    `json:"proxiedImageUrl,omitempty"`
	Crop            *PixelCrop `json:"crop,omitempty"`
	CroppedImageURL *string    `json:"croppedImageUrl,omitempty"`
	Caption         *Caption   `json:"caption,omitempty"`
	Type            ElementType `json:"type"`
}

// TierlistRow is one tier. Item order is the left-to-right display order.
type TierlistRow struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Items []TierlistImage `json:"items"`
	Type  ElementType     `json:"type"`
}

// Tierlist is the ordered row structure.
type Tierlist struct {
	Rows []TierlistRow `json:"rows"`
}

// Reserve holds every image not currently placed in a row.
type Reserve struct {
	Items []TierlistImage `json:"items"`
	Type  ElementType     `json:"type"`
}

// TierlistTemplate is the root document: a reusable row skeleton plus the
// unplaced-image pool. A tierlist snapshot reuses the same shape with
// TierlistID set.
type TierlistTemplate struct {
	Tierlist        Tierlist `json:"tierlist"`
	TierlistReserve Reserve  `json:"tierlistReserve"`
	TemplateID      *string  `json:"templateID,omitempty"`
	TierlistID      *string  `json:"tierlistID,omitempty"`
	TemplateTitle   string   `json:"templateTitle"`
	TierlistTitle   *string  `json:"tierlistTitle,omitempty"`
	IsPrivate       *bool    `json:"isPrivate,omitempty"`
	Owner           *string  `json:"owner,omitempty"`
	Deleted         *bool    `json:"deleted,omitempty"`
}

// TemplatePayload is the GET response wrapper.
type TemplatePayload struct {
	Template *TierlistTemplate `json:"template"`
	IsOwner  bool              `json:"isOwner,omitempty"`
}

// DefaultTemplate returns the 5-row S-D starter skeleton.
func DefaultTemplate() *TierlistTemplate {
	labels := []string{"S", "A", "B", "C", "D"}
	rows := make([]TierlistRow, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, TierlistRow{
			ID:    uuid.New().String(),
			Label: l,
			Items: []TierlistImage{},
			Type:  ElementRow,
		})
	}
	return &TierlistTemplate{
		Tierlist:        Tierlist{Rows: rows},
		TierlistReserve: Reserve{Items: []TierlistImage{}, Type: ElementReserve},
		TemplateTitle:   "New Template",
	}
}

// Clone returns a deep copy of the template. Drag reconciliation builds the
// next state on a copy so a partial update is never observable.
func (t *TierlistTemplate) Clone() *TierlistTemplate {
	if t == nil {
		return nil
	}
	out := *t
	out.Tierlist.Rows = make([]TierlistRow, len(t.Tierlist.Rows))
	for i, row := range t.Tierlist.Rows {
		out.Tierlist.Rows[i] = row
		out.Tierlist.Rows[i].Items = append([]TierlistImage(nil), row.Items...)
	}
	out.TierlistReserve.Items = append([]TierlistImage(nil), t.TierlistReserve.Items...)
	return &out
}

// ImageIDs returns the multiset of image ids across all rows and the reserve.
func (t *TierlistTemplate) ImageIDs() []string {
	var ids []string
	for _, row := range t.Tierlist.Rows {
		for _, img := range row.Items {
			ids = append(ids, img.ID)
		}
	}
	for _, img := range t.TierlistReserve.Items {
		ids = append(ids, img.ID)
	}
	return ids
}

// MoveAllToReserve moves every row's items into the reserve, keeping the row
// skeleton. Templates are persisted in this form: placements belong to
// tierlist snapshots, the template carries only structure and pool.
func (t *TierlistTemplate) MoveAllToReserve() *TierlistTemplate {
	out := t.Clone()
	for i := range out.Tierlist.Rows {
		out.TierlistReserve.Items = append(out.TierlistReserve.Items, out.Tierlist.Rows[i].Items...)
		out.Tierlist.Rows[i].Items = []TierlistImage{}
	}
	return out
}
