package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func validDoc(t *testing.T) []byte {
	t.Helper()
	doc := TierlistTemplate{
		Tierlist: Tierlist{Rows: []TierlistRow{
			{ID: "r1", Label: "S", Items: []TierlistImage{{ID: "i1", Type: ElementImage}}, Type: ElementRow},
			{ID: "r2", Label: "A", Items: []TierlistImage{}, Type: ElementRow},
		}},
		TierlistReserve: Reserve{Items: []TierlistImage{{ID: "i2", Type: ElementImage}}, Type: ElementReserve},
		TemplateTitle:   "My Template",
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestParseTemplateAcceptsValidDocument(t *testing.T) {
	got, err := ParseTemplate(validDoc(t))
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if got.TemplateTitle != "My Template" || len(got.Tierlist.Rows) != 2 {
		t.Fatalf("parsed document wrong: %+v", got)
	}
}

func TestParseTemplateRejectsMalformedJSON(t *testing.T) {
	_, err := ParseTemplate([]byte("{not json"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestParseTemplateRejections(t *testing.T) {
	mutate := func(f func(*TierlistTemplate)) []byte {
		var doc TierlistTemplate
		if err := json.Unmarshal(validDoc(t), &doc); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		f(&doc)
		raw, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return raw
	}

	cases := []struct {
		name string
		doc  []byte
	}{
		{"missing title", mutate(func(d *TierlistTemplate) { d.TemplateTitle = "" })},
		{"nil rows", mutate(func(d *TierlistTemplate) { d.Tierlist.Rows = nil })},
		{"row without id", mutate(func(d *TierlistTemplate) { d.Tierlist.Rows[0].ID = "" })},
		{"row wrong type", mutate(func(d *TierlistTemplate) { d.Tierlist.Rows[0].Type = ElementImage })},
		{"row nil items", mutate(func(d *TierlistTemplate) { d.Tierlist.Rows[1].Items = nil })},
		{"image without id", mutate(func(d *TierlistTemplate) { d.Tierlist.Rows[0].Items[0].ID = "" })},
		{"image wrong type", mutate(func(d *TierlistTemplate) { d.Tierlist.Rows[0].Items[0].Type = ElementRow })},
		{"reserve wrong type", mutate(func(d *TierlistTemplate) { d.TierlistReserve.Type = ElementRow })},
		{"reserve nil items", mutate(func(d *TierlistTemplate) { d.TierlistReserve.Items = nil })},
		{"bad crop", mutate(func(d *TierlistTemplate) {
			d.Tierlist.Rows[0].Items[0].Crop = &PixelCrop{Width: 0, Height: 10}
		})},
		{"too many rows", mutate(func(d *TierlistTemplate) {
			for len(d.Tierlist.Rows) <= MaxRows {
				d.Tierlist.Rows = append(d.Tierlist.Rows, TierlistRow{
					ID: "rx", Label: "X", Items: []TierlistImage{}, Type: ElementRow,
				})
			}
		})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTemplate(tc.doc)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig, err := ParseTemplate(validDoc(t))
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}

	c := orig.Clone()
	c.Tierlist.Rows[0].Items[0].ID = "tampered"
	c.TierlistReserve.Items[0].ID = "tampered"
	c.TemplateTitle = "tampered"

	if orig.Tierlist.Rows[0].Items[0].ID != "i1" ||
		orig.TierlistReserve.Items[0].ID != "i2" ||
		orig.TemplateTitle != "My Template" {
		t.Fatal("clone mutation leaked into the original")
	}
}

func TestMoveAllToReserve(t *testing.T) {
	orig, err := ParseTemplate(validDoc(t))
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}

	flat := orig.MoveAllToReserve()
	if len(flat.Tierlist.Rows) != 2 {
		t.Fatalf("expected the row skeleton kept, got %d rows", len(flat.Tierlist.Rows))
	}
	for i, r := range flat.Tierlist.Rows {
		if len(r.Items) != 0 {
			t.Fatalf("row %d still holds items: %+v", i, r.Items)
		}
	}
	if len(flat.TierlistReserve.Items) != 2 {
		t.Fatalf("expected 2 reserve items, got %d", len(flat.TierlistReserve.Items))
	}
	// The source document is untouched.
	if len(orig.Tierlist.Rows[0].Items) != 1 {
		t.Fatal("MoveAllToReserve mutated its receiver")
	}
}

func TestImageIDs(t *testing.T) {
	orig, err := ParseTemplate(validDoc(t))
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	ids := orig.ImageIDs()
	if len(ids) != 2 || ids[0] != "i1" || ids[1] != "i2" {
		t.Fatalf("expected [i1 i2], got %v", ids)
	}
}
