package models

import (
	"encoding/json"
	"fmt"
)

// ValidationError reports why a document or request body failed shape
// validation. It maps to HTTP 400 at the API layer.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid document: " + e.Reason
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ParseTemplate decodes and validates a template document from an untrusted
// source (request body, stored document). It returns either a typed value or
// a *ValidationError with the reason, never a panic.
func ParseTemplate(data []byte) (*TierlistTemplate, error) {
	var t TierlistTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, invalid("malformed JSON: %v", err)
	}
	if err := CheckTemplate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CheckTemplate validates an already-decoded template.
func CheckTemplate(t *TierlistTemplate) error {
	if t == nil {
		return invalid("missing template")
	}
	if t.TemplateTitle == "" {
		return invalid("templateTitle is required")
	}
	if t.Tierlist.Rows == nil {
		return invalid("tierlist.rows is required")
	}
	if len(t.Tierlist.Rows) > MaxRows {
		return invalid("tierlist has %d rows, max is %d", len(t.Tierlist.Rows), MaxRows)
	}
	for i := range t.Tierlist.Rows {
		if err := checkRow(&t.Tierlist.Rows[i]); err != nil {
			return invalid("row %d: %s", i, err.(*ValidationError).Reason)
		}
	}
	if err := checkReserve(&t.TierlistReserve); err != nil {
		return err
	}
	return nil
}

func checkRow(r *TierlistRow) error {
	if r.ID == "" {
		return invalid("id is required")
	}
	if r.Type != ElementRow {
		return invalid("wrong element type %d", r.Type)
	}
	if r.Items == nil {
		return invalid("items is required")
	}
	for i := range r.Items {
		if err := CheckImage(&r.Items[i]); err != nil {
			return invalid("item %d: %s", i, err.(*ValidationError).Reason)
		}
	}
	return nil
}

func checkReserve(r *Reserve) error {
	if r.Type != ElementReserve {
		return invalid("reserve: wrong element type %d", r.Type)
	}
	if r.Items == nil {
		return invalid("reserve: items is required")
	}
	for i := range r.Items {
		if err := CheckImage(&r.Items[i]); err != nil {
			return invalid("reserve item %d: %s", i, err.(*ValidationError).Reason)
		}
	}
	return nil
}

// CheckImage validates a single image entry.
func CheckImage(img *TierlistImage) error {
	if img.ID == "" {
		return invalid("id is required")
	}
	if img.Type != ElementImage {
		return invalid("wrong element type %d", img.Type)
	}
	if img.Crop != nil {
		if img.Crop.Width <= 0 || img.Crop.Height <= 0 {
			return invalid("crop has non-positive dimensions")
		}
	}
	return nil
}
